package router

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/searchktools/stream-server/core/http"
)

func newRequest(t *testing.T, method, host, path string) *http.Message {
	t.Helper()
	h := http.NewHeader()
	h.Set("Host", host)
	m, err := http.NewMessage(method, path, h, true, nil)
	if err != nil {
		t.Fatalf("build request %s %s: %v", method, path, err)
	}
	return m
}

// markHandler records that it ran and answers 200.
func markHandler(ran *string, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, m *http.Message) error {
		*ran = name
		return http.Error(w, http.StatusOK)
	})
}

func serve(t *testing.T, mux http.Handler, m *http.Message) string {
	t.Helper()
	var buf bytes.Buffer
	w := http.NewResponseWriter(&buf)
	if err := mux.ServeHTTP(w, m); err != nil {
		t.Fatalf("serve %s: %v", m.Path(), err)
	}
	return buf.String()
}

// TestMuxExactMatch tests that exact patterns win on their own path
func TestMuxExactMatch(t *testing.T) {
	mux := NewServeMux()
	var ran string
	if err := mux.Handle("/api/v1/versions", markHandler(&ran, "versions")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	serve(t, mux, newRequest(t, "GET", "a", "/api/v1/versions"))
	if ran != "versions" {
		t.Errorf("expected versions handler, ran %q", ran)
	}
}

// TestMuxSubtreeLongestPrefix tests longest-prefix selection among subtrees
func TestMuxSubtreeLongestPrefix(t *testing.T) {
	mux := NewServeMux()
	var ran string
	for _, p := range []string{"/", "/api/", "/api/v1/"} {
		if err := mux.Handle(p, markHandler(&ran, p)); err != nil {
			t.Fatalf("handle %s: %v", p, err)
		}
	}

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/streams", "/api/v1/"},
		{"/api/summaries", "/api/"},
		{"/console/index.html", "/"},
	}
	for _, tt := range tests {
		ran = ""
		serve(t, mux, newRequest(t, "GET", "a", tt.path))
		if ran != tt.want {
			t.Errorf("%s: expected %q, ran %q", tt.path, tt.want, ran)
		}
	}
}

// TestMuxDuplicatePattern tests double registration failure
func TestMuxDuplicatePattern(t *testing.T) {
	mux := NewServeMux()
	if err := mux.Handle("/live/", http.NotFoundHandler()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := mux.Handle("/live/", http.NotFoundHandler()); !errors.Is(err, ErrDuplicatePattern) {
		t.Errorf("expected ErrDuplicatePattern, got %v", err)
	}
}

// TestMuxTrailingSlashRedirect tests 301 synthesis for bare subtree paths
func TestMuxTrailingSlashRedirect(t *testing.T) {
	mux := NewServeMux()
	var ran string
	if err := mux.Handle("/live/", markHandler(&ran, "live")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := serve(t, mux, newRequest(t, "GET", "a", "/live"))
	if !strings.HasPrefix(out, "HTTP/1.1 301 Moved Permanently\r\n") {
		t.Errorf("expected 301, got %q", out)
	}
	if !strings.Contains(out, "Location: /live/\r\n") {
		t.Errorf("expected Location header, got %q", out)
	}
	if ran != "" {
		t.Errorf("subtree handler must not run on redirect, ran %q", ran)
	}

	// An explicit exact entry beats the redirect.
	if err := mux.Handle("/live", markHandler(&ran, "exact")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	serve(t, mux, newRequest(t, "GET", "a", "/live"))
	if ran != "exact" {
		t.Errorf("expected exact handler, ran %q", ran)
	}
}

// TestMuxVhost tests host-qualified patterns
func TestMuxVhost(t *testing.T) {
	mux := NewServeMux()
	var ran string
	if err := mux.Handle("ossrs.net/admin/", markHandler(&ran, "admin")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	serve(t, mux, newRequest(t, "GET", "ossrs.net", "/admin/users"))
	if ran != "admin" {
		t.Errorf("expected admin handler for matching host, ran %q", ran)
	}

	ran = ""
	out := serve(t, mux, newRequest(t, "GET", "other.net", "/admin/users"))
	if ran != "" || !strings.HasPrefix(out, "HTTP/1.1 404") {
		t.Errorf("expected 404 for foreign host, ran %q, got %q", ran, out)
	}
}

type hijackFunc func(m *http.Message) (http.Handler, error)

func (f hijackFunc) Hijack(m *http.Message) (http.Handler, error) { return f(m) }

// TestMuxHijacker tests the fallback chain order and error tolerance
func TestMuxHijacker(t *testing.T) {
	mux := NewServeMux()
	var ran string

	mux.Hijack(hijackFunc(func(m *http.Message) (http.Handler, error) {
		return nil, errors.New("not mine")
	}))
	mux.Hijack(hijackFunc(func(m *http.Message) (http.Handler, error) {
		if strings.HasSuffix(m.Path(), ".flv") {
			return markHandler(&ran, "flv"), nil
		}
		return nil, errors.New("not mine")
	}))

	serve(t, mux, newRequest(t, "GET", "a", "/vod/movie.flv"))
	if ran != "flv" {
		t.Errorf("expected flv hijacker, ran %q", ran)
	}

	ran = ""
	out := serve(t, mux, newRequest(t, "GET", "a", "/vod/movie.mp3"))
	if ran != "" || !strings.HasPrefix(out, "HTTP/1.1 404") {
		t.Errorf("expected 404 when all hijackers decline, got %q", out)
	}
}

// TestMuxSetEnabled tests that disabled entries are invisible
func TestMuxSetEnabled(t *testing.T) {
	mux := NewServeMux()
	var ran string
	if err := mux.Handle("/api/", markHandler(&ran, "api")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := mux.SetEnabled("/api/", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	out := serve(t, mux, newRequest(t, "GET", "a", "/api/v1/streams"))
	if ran != "" || !strings.HasPrefix(out, "HTTP/1.1 404") {
		t.Errorf("expected 404 while disabled, got %q", out)
	}

	if err := mux.SetEnabled("/api/", true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	serve(t, mux, newRequest(t, "GET", "a", "/api/v1/streams"))
	if ran != "api" {
		t.Errorf("expected handler after re-enable, ran %q", ran)
	}

	if err := mux.SetEnabled("/nope", true); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("expected ErrUnknownPattern, got %v", err)
	}
}
