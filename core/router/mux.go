// Package router maps request paths to handlers: exact and subtree patterns,
// per-host namespaces, hijacker fallbacks and a CORS wrapper.
package router

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/searchktools/stream-server/core/http"
)

// Registration errors.
var (
	// ErrDuplicatePattern is returned when a pattern is registered twice.
	// Routing tables are built at startup; a duplicate is a programming
	// error, not a runtime condition.
	ErrDuplicatePattern = errors.New("pattern already registered")

	// ErrUnknownPattern is returned by SetEnabled for unregistered patterns.
	ErrUnknownPattern = errors.New("pattern not registered")
)

// Hijacker is a fallback collaborator consulted when no registered pattern
// matches a request. The first hijacker to return a handler without error
// wins; errors fall through to the next hijacker and finally to not-found.
type Hijacker interface {
	Hijack(m *http.Message) (http.Handler, error)
}

// muxEntry is one registered route. The pattern map and the vhost map share
// entries by pointer, so disabling an entry affects both views.
type muxEntry struct {
	pattern string
	handler http.Handler
	enabled bool
}

// ServeMux dispatches requests to registered handlers.
//
// Patterns ending in "/" match the whole subtree below them; other patterns
// require an exact path match. Patterns not starting with "/" carry a host
// prefix and only match requests for that virtual host. Pattern "/" is the
// catch-all.
//
// Registration normally completes before serving starts; the mutex exists for
// servers that re-register or toggle entries at runtime.
type ServeMux struct {
	mu        sync.RWMutex
	entries   map[string]*muxEntry
	vhosts    map[string]*muxEntry
	hijackers []Hijacker
	notFound  http.Handler
}

// NewServeMux creates an empty mux whose miss handler replies 404.
func NewServeMux() *ServeMux {
	return &ServeMux{
		entries:  make(map[string]*muxEntry),
		vhosts:   make(map[string]*muxEntry),
		notFound: http.NotFoundHandler(),
	}
}

// Handle registers handler under pattern. It fails with ErrDuplicatePattern
// when the pattern is already taken.
func (mux *ServeMux) Handle(pattern string, handler http.Handler) error {
	if pattern == "" {
		return errors.New("register empty pattern")
	}
	if handler == nil {
		return fmt.Errorf("register %q: nil handler", pattern)
	}

	mux.mu.Lock()
	defer mux.mu.Unlock()

	if _, ok := mux.entries[pattern]; ok {
		return fmt.Errorf("register %q: %w", pattern, ErrDuplicatePattern)
	}
	e := &muxEntry{pattern: pattern, handler: handler, enabled: true}
	mux.entries[pattern] = e

	// A host-qualified pattern like "ossrs.net/api/" also claims its vhost.
	if pattern[0] != '/' {
		host, _, _ := strings.Cut(pattern, "/")
		mux.vhosts[host] = e
	}
	return nil
}

// HandleFunc registers a plain function under pattern.
func (mux *ServeMux) HandleFunc(pattern string, f func(http.ResponseWriter, *http.Message) error) error {
	return mux.Handle(pattern, http.HandlerFunc(f))
}

// SetEnabled toggles an entry without unregistering it. A disabled entry is
// invisible to matching.
func (mux *ServeMux) SetEnabled(pattern string, enabled bool) error {
	mux.mu.Lock()
	defer mux.mu.Unlock()

	e, ok := mux.entries[pattern]
	if !ok {
		return fmt.Errorf("toggle %q: %w", pattern, ErrUnknownPattern)
	}
	e.enabled = enabled
	return nil
}

// Hijack appends h to the fallback chain. Hijackers run in registration
// order after pattern and vhost matching both miss.
func (mux *ServeMux) Hijack(h Hijacker) {
	mux.mu.Lock()
	defer mux.mu.Unlock()
	mux.hijackers = append(mux.hijackers, h)
}

// SetNotFound replaces the miss handler.
func (mux *ServeMux) SetNotFound(h http.Handler) {
	mux.mu.Lock()
	defer mux.mu.Unlock()
	mux.notFound = h
}

// FindHandler resolves the handler for m without invoking it.
//
// Order: exact path match, trailing-slash redirect synthesis, longest subtree
// prefix, the same three against "<host><path>" when the request host has a
// vhost entry, then the hijacker chain, then not-found.
func (mux *ServeMux) FindHandler(m *http.Message) http.Handler {
	mux.mu.RLock()
	defer mux.mu.RUnlock()

	path := m.Path()
	if h := mux.match(path, path); h != nil {
		return h
	}
	if _, ok := mux.vhosts[m.Host()]; ok {
		if h := mux.match(m.Host()+path, path); h != nil {
			return h
		}
	}
	for _, hj := range mux.hijackers {
		h, err := hj.Hijack(m)
		if err == nil && h != nil {
			return h
		}
	}
	return mux.notFound
}

// match runs the path-only steps of the algorithm under the read lock. key is
// the lookup key, possibly host-prefixed; reqPath is the client-visible path
// used in synthesized redirects.
func (mux *ServeMux) match(key, reqPath string) http.Handler {
	if e, ok := mux.entries[key]; ok && e.enabled {
		return e.handler
	}

	// "/live" redirects to a registered "/live/" subtree when no exact
	// entry claimed the bare path.
	if e, ok := mux.entries[key+"/"]; ok && e.enabled {
		return http.RedirectHandler(reqPath+"/", http.StatusMovedPermanently)
	}

	var best *muxEntry
	for pattern, e := range mux.entries {
		if !e.enabled || !strings.HasSuffix(pattern, "/") {
			continue
		}
		if !strings.HasPrefix(key, pattern) {
			continue
		}
		if best == nil || len(pattern) > len(best.pattern) {
			best = e
		}
	}
	if best != nil {
		return best.handler
	}
	return nil
}

// ServeHTTP resolves and runs the handler for m.
func (mux *ServeMux) ServeHTTP(w http.ResponseWriter, m *http.Message) error {
	return mux.FindHandler(m).ServeHTTP(w, m)
}
