package stream

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/searchktools/stream-server/core/http"
)

func liveRequest(t *testing.T, path string) *http.Message {
	t.Helper()
	h := http.NewHeader()
	h.Set("Host", "a")
	m, err := http.NewMessage("GET", path, h, true, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return m
}

// TestHandlerStreamsChannel tests header-then-frames delivery over chunked HTTP
func TestHandlerStreamsChannel(t *testing.T) {
	hub := NewHub(0)
	c := hub.OpenChannel("livestream", []byte("FLVHDR"))
	h := NewHandler(hub, "/live/", "video/x-flv")

	go func() {
		for hub.ViewerCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		c.Publish(Frame{Payload: []byte("tag1")})
		c.Publish(Frame{Payload: []byte("tag2")})
		hub.CloseChannel("livestream")
	}()

	var buf bytes.Buffer
	if err := h.ServeHTTP(http.NewResponseWriter(&buf), liveRequest(t, "/live/livestream.flv")); err != nil {
		t.Fatalf("serve: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("expected 200, got %q", out)
	}
	if !strings.Contains(out, "Content-Type: video/x-flv\r\n") {
		t.Errorf("expected flv content type, got %q", out)
	}
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("expected chunked framing, got %q", out)
	}
	for _, chunk := range []string{"6\r\nFLVHDR\r\n", "4\r\ntag1\r\n", "4\r\ntag2\r\n", "0\r\n\r\n"} {
		if !strings.Contains(out, chunk) {
			t.Errorf("expected chunk %q, got %q", chunk, out)
		}
	}
}

// TestHandlerUnknownChannel tests the 404 path
func TestHandlerUnknownChannel(t *testing.T) {
	h := NewHandler(NewHub(0), "/live/", "video/x-flv")

	var buf bytes.Buffer
	if err := h.ServeHTTP(http.NewResponseWriter(&buf), liveRequest(t, "/live/nope.flv")); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("expected 404, got %q", buf.String())
	}
}
