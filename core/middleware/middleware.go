// Package middleware provides handler wrappers shared by the API and stream
// surfaces: panic recovery, request logging, request IDs and rate limiting.
package middleware

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/stream-server/core/http"
)

// Middleware wraps a handler with extra behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies mws to h. The first middleware listed becomes the outermost
// wrapper, so it observes the request first and the response last.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery converts handler panics into a best-effort 500 response instead of
// tearing down the connection goroutine.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("❌ Panic serving %s %s: %v", m.Method(), m.Path(), r)
					err = http.Error(w, http.StatusInternalServerError)
				}
			}()
			return next.ServeHTTP(w, m)
		})
	}
}

// Logger logs one line per request with method, path and handler latency.
func Logger() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
			start := time.Now()
			err := next.ServeHTTP(w, m)
			if err != nil {
				log.Printf("[%s] %s %v error=%v", m.Method(), m.Path(), time.Since(start), err)
			} else {
				log.Printf("[%s] %s %v", m.Method(), m.Path(), time.Since(start))
			}
			return err
		})
	}
}

// RequestID stamps every response with a unique X-Request-ID so client logs
// can be correlated with server logs.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
			w.Header().Set("X-Request-ID", uuid.NewString())
			return next.ServeHTTP(w, m)
		})
	}
}

// RateLimiter rejects requests over the per-second budget with 429. The
// bucket refills wholesale once a second, which is coarse but cheap.
func RateLimiter(requestsPerSecond int) Middleware {
	var (
		mu         sync.Mutex
		tokens     = requestsPerSecond
		lastRefill = time.Now()
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
			mu.Lock()
			now := time.Now()
			if now.Sub(lastRefill) > time.Second {
				tokens = requestsPerSecond
				lastRefill = now
			}
			allowed := tokens > 0
			if allowed {
				tokens--
			}
			mu.Unlock()

			if !allowed {
				return http.Error(w, http.StatusTooManyRequests)
			}
			return next.ServeHTTP(w, m)
		})
	}
}
