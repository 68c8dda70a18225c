package http

import (
	"io"
	"strings"
	"testing"
)

func buildAll(t *testing.T, wire string) *MessageBuilder {
	t.Helper()
	return NewMessageBuilder(strings.NewReader(wire), 0)
}

// TestBuilderSimpleGet tests request assembly from a complete GET
func TestBuilderSimpleGet(t *testing.T) {
	b := buildAll(t, "GET /live/stream.flv?start=0 HTTP/1.1\r\n"+
		"Host: ossrs.net\r\n"+
		"User-Agent: vlc\r\n"+
		"\r\n")

	m, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !m.IsGet() || m.Method() != MethodGet {
		t.Errorf("method: got %q", m.Method())
	}
	if m.Host() != "ossrs.net" {
		t.Errorf("host: got %q", m.Host())
	}
	if m.Path() != "/live/stream.flv" {
		t.Errorf("path: got %q", m.Path())
	}
	if m.URL() != "http://ossrs.net/live/stream.flv?start=0" {
		t.Errorf("url: got %q", m.URL())
	}
	if m.QueryGet("start") != "0" {
		t.Errorf("query: got %q", m.QueryGet("start"))
	}
	if m.Header().Get("User-Agent") != "vlc" {
		t.Errorf("header: got %q", m.Header().Get("User-Agent"))
	}
	if !m.IsKeepAlive() {
		t.Error("expected keep-alive for HTTP/1.1")
	}

	body, err := m.ReadBody()
	if err != nil || len(body) != 0 {
		t.Errorf("body: got %q, %v", body, err)
	}

	if _, err := b.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last request, got %v", err)
	}
}

// TestBuilderPostBody tests identity body delivery
func TestBuilderPostBody(t *testing.T) {
	b := buildAll(t, "POST /api/v1/clients HTTP/1.1\r\n"+
		"Host: ossrs.net\r\n"+
		"Content-Length: 5\r\n"+
		"\r\n"+
		"hello")

	m, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !m.IsPost() {
		t.Errorf("method: got %q", m.Method())
	}
	if m.ContentLength() != 5 {
		t.Errorf("content length: got %d", m.ContentLength())
	}

	body, err := m.ReadBody()
	if err != nil || string(body) != "hello" {
		t.Errorf("body: got %q, %v", body, err)
	}
}

// TestBuilderChunkedBody tests de-chunked body delivery
func TestBuilderChunkedBody(t *testing.T) {
	b := buildAll(t, "POST /api/v1/publish HTTP/1.1\r\n"+
		"Host: ossrs.net\r\n"+
		"Transfer-Encoding: chunked\r\n"+
		"\r\n"+
		"3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n")

	m, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if m.ContentLength() != -1 {
		t.Errorf("content length: got %d", m.ContentLength())
	}

	body, err := m.ReadBody()
	if err != nil || string(body) != "abcde" {
		t.Errorf("body: got %q, %v", body, err)
	}
}

// TestBuilderPipelined tests two requests from one buffer, with the first
// body skipped by the caller
func TestBuilderPipelined(t *testing.T) {
	b := buildAll(t, "POST /first HTTP/1.1\r\nHost: a\r\nContent-Length: 3\r\n\r\nxyz"+
		"GET /second HTTP/1.1\r\nHost: a\r\n\r\n")

	m1, err := b.Next()
	if err != nil {
		t.Fatalf("next 1: %v", err)
	}
	if m1.Path() != "/first" {
		t.Errorf("path 1: got %q", m1.Path())
	}

	// The unread POST body must not bleed into the second request.
	m2, err := b.Next()
	if err != nil {
		t.Fatalf("next 2: %v", err)
	}
	if m2.Path() != "/second" {
		t.Errorf("path 2: got %q", m2.Path())
	}
}

// TestBuilderConnectionClose tests the verdict for HTTP/1.0 requests
func TestBuilderConnectionClose(t *testing.T) {
	b := buildAll(t, "GET /live HTTP/1.0\r\nHost: a\r\n\r\n")

	m, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if m.IsKeepAlive() {
		t.Error("expected close verdict for HTTP/1.0")
	}
}

// TestBuilderParseError tests that malformed start lines fail Next
func TestBuilderParseError(t *testing.T) {
	b := buildAll(t, "TOTALLY WRONG\r\n\r\n")

	if _, err := b.Next(); err == nil || err == io.EOF {
		t.Fatalf("expected parse error, got %v", err)
	}
	// The error sticks: the connection is unusable.
	if _, err := b.Next(); err == nil {
		t.Error("expected sticky error on second Next")
	}
}

// TestBuilderTruncatedMessage tests EOF in the middle of a message
func TestBuilderTruncatedMessage(t *testing.T) {
	b := buildAll(t, "GET /live HTTP/1.1\r\nHost: a\r\nContent-L")

	if _, err := b.Next(); err == nil || err == io.EOF {
		t.Errorf("expected mid-message EOF error, got %v", err)
	}
}

// TestMessageJSONP tests callback detection on API requests
func TestMessageJSONP(t *testing.T) {
	b := buildAll(t, "GET /api/v1/summaries?callback=cb HTTP/1.1\r\nHost: a\r\n\r\n")

	m, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !m.IsJSONP() {
		t.Error("expected JSONP request")
	}
	if m.QueryGet("callback") != "cb" {
		t.Errorf("callback: got %q", m.QueryGet("callback"))
	}
}

// TestMessageMethodPredicates tests the method helpers
func TestMessageMethodPredicates(t *testing.T) {
	tests := []struct {
		method string
		check  func(*Message) bool
	}{
		{"GET", (*Message).IsGet},
		{"PUT", (*Message).IsPut},
		{"POST", (*Message).IsPost},
		{"DELETE", (*Message).IsDelete},
		{"OPTIONS", (*Message).IsOptions},
	}

	for _, tt := range tests {
		h := NewHeader()
		h.Set("Host", "a")
		m, err := NewMessage(tt.method, "/x", h, true, nil)
		if err != nil {
			t.Fatalf("%s: %v", tt.method, err)
		}
		if !tt.check(m) {
			t.Errorf("%s: predicate returned false", tt.method)
		}
	}
}
