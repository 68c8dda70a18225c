package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/searchktools/stream-server/core/http"
	"github.com/searchktools/stream-server/core/router"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startServer runs a server over a loopback listener and returns its address.
func startServer(t *testing.T, h http.Handler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ServerOptions{Handler: h})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	t.Cleanup(func() {
		require.NoError(t, srv.Shutdown(context.Background()))
		assert.NoError(t, <-done)
	})
	return ln.Addr().String()
}

// readResponse consumes one response: status line, headers, then a body
// framed by Content-Length or chunked encoding.
func readResponse(t *testing.T, br *bufio.Reader) (status string, headers map[string]string, body string) {
	t.Helper()

	status, err := br.ReadString('\n')
	require.NoError(t, err)
	status = strings.TrimRight(status, "\r\n")

	headers = make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ": ")
		require.True(t, ok, "header line %q", line)
		headers[name] = value
	}

	if cl, ok := headers["Content-Length"]; ok {
		n, err := strconv.Atoi(cl)
		require.NoError(t, err)
		buf := make([]byte, n)
		_, err = io.ReadFull(br, buf)
		require.NoError(t, err)
		return status, headers, string(buf)
	}

	require.Equal(t, "chunked", headers["Transfer-Encoding"])
	var b strings.Builder
	for {
		sizeLine, err := br.ReadString('\n')
		require.NoError(t, err)
		size, err := strconv.ParseInt(strings.TrimRight(sizeLine, "\r\n"), 16, 64)
		require.NoError(t, err)
		if size == 0 {
			_, err = br.ReadString('\n')
			require.NoError(t, err)
			return status, headers, b.String()
		}
		chunk := make([]byte, size)
		_, err = io.ReadFull(br, chunk)
		require.NoError(t, err)
		b.Write(chunk)
		_, err = br.ReadString('\n')
		require.NoError(t, err)
	}
}

// TestServerKeepAliveRoundTrip tests two requests over one connection
func TestServerKeepAliveRoundTrip(t *testing.T) {
	mux := router.NewServeMux()
	require.NoError(t, mux.HandleFunc("/api/v1/versions", func(w http.ResponseWriter, m *http.Message) error {
		return http.WriteJSON(w, m, map[string]any{"code": 0, "version": "1.0.0"})
	}))
	addr := startServer(t, mux)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	for i := 0; i < 2; i++ {
		_, err = fmt.Fprintf(conn, "GET /api/v1/versions HTTP/1.1\r\nHost: %s\r\n\r\n", addr)
		require.NoError(t, err)

		status, headers, body := readResponse(t, br)
		assert.Equal(t, "HTTP/1.1 200 OK", status)
		assert.Equal(t, "application/json", headers["Content-Type"])
		assert.Contains(t, body, `"version":"1.0.0"`)
	}
}

// TestServerChunkedStream tests a handler streaming without Content-Length
func TestServerChunkedStream(t *testing.T) {
	mux := router.NewServeMux()
	require.NoError(t, mux.HandleFunc("/live/", func(w http.ResponseWriter, m *http.Message) error {
		w.Header().SetContentType("video/x-flv")
		for _, part := range []string{"FLV\x01", "tag1", "tag2"} {
			if _, err := w.Write([]byte(part)); err != nil {
				return err
			}
		}
		return w.FinalRequest()
	}))
	addr := startServer(t, mux)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "GET /live/stream.flv HTTP/1.1\r\nHost: %s\r\n\r\n", addr)
	require.NoError(t, err)

	status, headers, body := readResponse(t, bufio.NewReader(conn))
	assert.Equal(t, "HTTP/1.1 200 OK", status)
	assert.Equal(t, "video/x-flv", headers["Content-Type"])
	assert.Equal(t, "FLV\x01tag1tag2", body)
}

// TestServerNotFound tests miss dispatch through the mux
func TestServerNotFound(t *testing.T) {
	addr := startServer(t, router.NewServeMux())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "GET /nope HTTP/1.1\r\nHost: %s\r\n\r\n", addr)
	require.NoError(t, err)

	status, _, body := readResponse(t, bufio.NewReader(conn))
	assert.Equal(t, "HTTP/1.1 404 Not Found", status)
	assert.Equal(t, "Not Found", body)
}

// TestServerRejectsMalformed tests the best-effort 400 and connection close
func TestServerRejectsMalformed(t *testing.T) {
	addr := startServer(t, router.NewServeMux())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "TOTALLY WRONG\r\n\r\n")
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	status, _, _ := readResponse(t, br)
	assert.Equal(t, "HTTP/1.1 400 Bad Request", status)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err, "connection should close after a parse error")
}

// TestServerConnectionClose tests that the server honors the request verdict
func TestServerConnectionClose(t *testing.T) {
	mux := router.NewServeMux()
	require.NoError(t, mux.HandleFunc("/", func(w http.ResponseWriter, m *http.Message) error {
		return http.Error(w, http.StatusOK)
	}))
	addr := startServer(t, mux)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "GET / HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", addr)
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	status, _, _ := readResponse(t, br)
	assert.Equal(t, "HTTP/1.1 200 OK", status)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err)
}
