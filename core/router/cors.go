package router

import (
	"github.com/searchktools/stream-server/core/http"
)

// Cross-origin header values announced on every response when CORS is
// enabled. Players embedded in web pages fetch media and API data from a
// different origin than the page, so the surface is deliberately permissive.
const (
	corsAllowOrigin   = "*"
	corsAllowMethods  = "GET, POST, HEAD, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "origin,range,accept-encoding,referer,Cache-Control,X-Proxy-Authorization,X-Requested-With,Content-Type"
	corsExposeHeaders = "Server,range,Content-Length,Content-Range"
)

// CorsMux wraps a worker handler with cross-origin annotation. Disabled, it
// is a transparent passthrough. Enabled, it stamps the CORS headers on every
// response and short-circuits OPTIONS preflights with an empty 200 so the
// worker never sees them.
type CorsMux struct {
	worker  http.Handler
	enabled bool
}

// NewCorsMux wraps worker.
func NewCorsMux(worker http.Handler, enabled bool) *CorsMux {
	return &CorsMux{worker: worker, enabled: enabled}
}

func (c *CorsMux) ServeHTTP(w http.ResponseWriter, m *http.Message) error {
	if !c.enabled {
		return c.worker.ServeHTTP(w, m)
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

	if m.IsOptions() {
		h.SetContentLength(0)
		w.WriteHeader(http.StatusOK)
		return w.FinalRequest()
	}
	return c.worker.ServeHTTP(w, m)
}
