package middleware

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/searchktools/stream-server/core/http"
)

func testRequest(t *testing.T, path string) *http.Message {
	t.Helper()
	h := http.NewHeader()
	h.Set("Host", "a")
	m, err := http.NewMessage("GET", path, h, true, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return m
}

// TestChainOrder tests that the first middleware wraps outermost
func TestChainOrder(t *testing.T) {
	order := []int{}
	mw := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
				order = append(order, n)
				return next.ServeHTTP(w, m)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
		order = append(order, 4)
		return http.Error(w, http.StatusOK)
	}), mw(1), mw(2), mw(3))

	var buf bytes.Buffer
	if err := h.ServeHTTP(http.NewResponseWriter(&buf), testRequest(t, "/x")); err != nil {
		t.Fatalf("serve: %v", err)
	}

	expected := []int{1, 2, 3, 4}
	if len(order) != len(expected) {
		t.Fatalf("expected %d executions, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("expected order[%d] = %d, got %d", i, v, order[i])
		}
	}
}

// TestRecovery tests that handler panics become 500 responses
func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
		panic("boom")
	}), Recovery())

	var buf bytes.Buffer
	if err := h.ServeHTTP(http.NewResponseWriter(&buf), testRequest(t, "/x")); err != nil {
		t.Fatalf("expected recovered serve, got %v", err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Errorf("expected 500 response, got %q", buf.String())
	}
}

// TestRequestID tests that responses carry a unique id header
func TestRequestID(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
		return http.Error(w, http.StatusOK)
	}), RequestID())

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		if err := h.ServeHTTP(http.NewResponseWriter(&buf), testRequest(t, "/x")); err != nil {
			t.Fatalf("serve: %v", err)
		}
		_, rest, ok := strings.Cut(buf.String(), "X-Request-ID: ")
		if !ok {
			t.Fatalf("expected X-Request-ID header, got %q", buf.String())
		}
		id, _, _ := strings.Cut(rest, "\r\n")
		if seen[id] {
			t.Errorf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

// TestRateLimiter tests rejection over budget and refill after a second
func TestRateLimiter(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
		return http.Error(w, http.StatusOK)
	}), RateLimiter(2))

	statusOf := func() string {
		var buf bytes.Buffer
		if err := h.ServeHTTP(http.NewResponseWriter(&buf), testRequest(t, "/x")); err != nil {
			t.Fatalf("serve: %v", err)
		}
		line, _, _ := strings.Cut(buf.String(), "\r\n")
		return line
	}

	if got := statusOf(); got != "HTTP/1.1 200 OK" {
		t.Errorf("first request: got %q", got)
	}
	if got := statusOf(); got != "HTTP/1.1 200 OK" {
		t.Errorf("second request: got %q", got)
	}
	if got := statusOf(); got != "HTTP/1.1 429 Too Many Requests" {
		t.Errorf("third request: got %q", got)
	}

	time.Sleep(1100 * time.Millisecond)
	if got := statusOf(); got != "HTTP/1.1 200 OK" {
		t.Errorf("after refill: got %q", got)
	}
}
