// Package stream relays live media frames from publishers to HTTP viewers.
package stream

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription errors.
var (
	ErrNoSuchChannel = errors.New("channel not published")
	ErrHubFull       = errors.New("viewer limit reached")
)

// DefaultViewerBuffer is the per-viewer frame queue. A viewer that falls this
// far behind starts losing frames instead of stalling the publisher.
const DefaultViewerBuffer = 64

// Frame is one media unit, for example an FLV tag or an MPEG-TS packet run.
type Frame struct {
	Payload []byte
}

// Viewer is one attached consumer of a channel.
type Viewer struct {
	ID     string
	Frames chan Frame

	closeOnce sync.Once
}

func (v *Viewer) close() {
	v.closeOnce.Do(func() { close(v.Frames) })
}

// Channel is one published live stream.
type Channel struct {
	name   string
	header []byte

	mu      sync.Mutex
	viewers map[string]*Viewer
	closed  bool

	dropped atomic.Uint64
}

// Header returns the stream preamble every viewer receives first, such as the
// FLV file header and sequence headers.
func (c *Channel) Header() []byte { return c.header }

// Publish fans frame out to every viewer. Slow viewers lose the frame.
func (c *Channel) Publish(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.viewers {
		select {
		case v.Frames <- frame:
		default:
			c.dropped.Add(1)
		}
	}
}

// Dropped reports frames lost to slow viewers.
func (c *Channel) Dropped() uint64 { return c.dropped.Load() }

// Hub tracks the published channels of one server.
type Hub struct {
	mu         sync.RWMutex
	channels   map[string]*Channel
	maxViewers int
	viewers    int
}

// NewHub creates a hub allowing up to maxViewers attached viewers in total.
// maxViewers <= 0 means unlimited.
func NewHub(maxViewers int) *Hub {
	return &Hub{
		channels:   make(map[string]*Channel),
		maxViewers: maxViewers,
	}
}

// OpenChannel publishes a named channel with its preamble, replacing any
// previous channel of that name.
func (h *Hub) OpenChannel(name string, header []byte) *Channel {
	c := &Channel{
		name:    name,
		header:  append([]byte(nil), header...),
		viewers: make(map[string]*Viewer),
	}

	h.mu.Lock()
	old := h.channels[name]
	h.channels[name] = c
	h.mu.Unlock()

	if old != nil {
		h.closeChannel(old)
	}
	return c
}

// CloseChannel unpublishes name and detaches its viewers.
func (h *Hub) CloseChannel(name string) {
	h.mu.Lock()
	c := h.channels[name]
	delete(h.channels, name)
	h.mu.Unlock()

	if c != nil {
		h.closeChannel(c)
	}
}

func (h *Hub) closeChannel(c *Channel) {
	c.mu.Lock()
	c.closed = true
	viewers := c.viewers
	c.viewers = map[string]*Viewer{}
	c.mu.Unlock()

	h.mu.Lock()
	h.viewers -= len(viewers)
	h.mu.Unlock()

	for _, v := range viewers {
		v.close()
	}
}

// Channel returns the published channel of that name.
func (h *Hub) Channel(name string) (*Channel, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.channels[name]
	return c, ok
}

// Subscribe attaches a viewer to name. The viewer's Frames channel is closed
// when the channel is unpublished.
func (h *Hub) Subscribe(name string) (*Viewer, error) {
	h.mu.Lock()
	c, ok := h.channels[name]
	if !ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrNoSuchChannel)
	}
	if h.maxViewers > 0 && h.viewers >= h.maxViewers {
		h.mu.Unlock()
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrHubFull)
	}
	h.viewers++
	h.mu.Unlock()

	v := &Viewer{
		ID:     uuid.NewString(),
		Frames: make(chan Frame, DefaultViewerBuffer),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		h.mu.Lock()
		h.viewers--
		h.mu.Unlock()
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrNoSuchChannel)
	}
	c.viewers[v.ID] = v
	c.mu.Unlock()
	return v, nil
}

// Unsubscribe detaches v from name. Safe to call after CloseChannel.
func (h *Hub) Unsubscribe(name string, v *Viewer) {
	h.mu.RLock()
	c, ok := h.channels[name]
	h.mu.RUnlock()

	if ok {
		c.mu.Lock()
		if _, attached := c.viewers[v.ID]; attached {
			delete(c.viewers, v.ID)
			h.mu.Lock()
			h.viewers--
			h.mu.Unlock()
		}
		c.mu.Unlock()
	}
	v.close()
}

// ViewerCount reports attached viewers across all channels.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewers
}
