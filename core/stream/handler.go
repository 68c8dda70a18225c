package stream

import (
	"errors"
	"strings"

	"github.com/searchktools/stream-server/core/http"
)

// Handler serves live channels over chunked HTTP. A request for
// "<prefix><name>.flv" attaches to channel "<name>" and streams frames until
// the channel closes or the viewer disconnects.
type Handler struct {
	hub         *Hub
	prefix      string
	contentType string
}

// NewHandler creates a handler for hub mounted under prefix, for example
// "/live/".
func NewHandler(hub *Hub, prefix, contentType string) *Handler {
	return &Handler{hub: hub, prefix: prefix, contentType: contentType}
}

// channelName extracts the channel name from a request path, stripping the
// mount prefix and a single media extension.
func (h *Handler) channelName(path string) string {
	name := strings.TrimPrefix(path, h.prefix)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, m *http.Message) error {
	name := h.channelName(m.Path())
	v, err := h.hub.Subscribe(name)
	if err != nil {
		if errors.Is(err, ErrNoSuchChannel) {
			return http.Error(w, http.StatusNotFound)
		}
		return http.Error(w, http.StatusServiceUnavailable)
	}
	defer h.hub.Unsubscribe(name, v)

	c, ok := h.hub.Channel(name)
	if !ok {
		return http.Error(w, http.StatusNotFound)
	}

	w.Header().SetContentType(h.contentType)
	if hdr := c.Header(); len(hdr) > 0 {
		if _, err := w.Write(hdr); err != nil {
			return err
		}
	}

	for frame := range v.Frames {
		if _, err := w.Write(frame.Payload); err != nil {
			// Viewer went away; not a server failure.
			return nil
		}
	}
	return w.FinalRequest()
}
