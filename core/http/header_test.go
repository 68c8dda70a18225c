package http

import (
	"bytes"
	"testing"
)

// TestHeaderCaseSensitive tests that names are matched byte-exact
func TestHeaderCaseSensitive(t *testing.T) {
	h := NewHeader()
	h.Set("Content-Type", "video/flv")
	if got := h.Get("content-type"); got != "" {
		t.Errorf("expected miss on lowercased name, got %q", got)
	}
	if got := h.Get("Content-Type"); got != "video/flv" {
		t.Errorf("expected video/flv, got %q", got)
	}
}

// TestHeaderLastWriteWins tests overwrite semantics of Set
func TestHeaderLastWriteWins(t *testing.T) {
	h := NewHeader()
	h.Set("X-Trace", "a")
	h.Set("X-Trace", "b")
	if got := h.Get("X-Trace"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if h.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", h.Count())
	}

	h.Del("X-Trace")
	if h.Count() != 0 || h.Get("X-Trace") != "" {
		t.Error("expected empty header after Del")
	}
}

// TestHeaderContentLength tests the -1 sentinel and round-trip
func TestHeaderContentLength(t *testing.T) {
	h := NewHeader()
	if got := h.ContentLength(); got != -1 {
		t.Errorf("expected -1 when unset, got %d", got)
	}

	h.SetContentLength(1024)
	if got := h.ContentLength(); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
	if got := h.Get("Content-Length"); got != "1024" {
		t.Errorf("expected stringified entry, got %q", got)
	}

	h.Set("Content-Length", "not-a-number")
	if got := h.ContentLength(); got != -1 {
		t.Errorf("expected -1 for unparsable value, got %d", got)
	}
}

// TestHeaderWrite tests serialization order: sorted names, then cookies
func TestHeaderWrite(t *testing.T) {
	h := NewHeader()
	h.Set("Server", "stream-server")
	h.Set("Content-Type", "application/json")
	h.AddCookie("sid=abc; Path=/")
	h.AddCookie("lang=en")

	var buf bytes.Buffer
	if err := h.Write(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "Content-Type: application/json\r\n" +
		"Server: stream-server\r\n" +
		"Set-Cookie: sid=abc; Path=/\r\n" +
		"Set-Cookie: lang=en\r\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}
