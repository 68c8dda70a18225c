package http

import (
	"fmt"
	"io"
	"strconv"
)

// ServerName is the Server header value sent when the handler set none.
const ServerName = "stream-server"

// ResponseWriter is the handler-side response surface. The implementation is
// a strict state machine: headers may change until the first body write, the
// framing mode is fixed at that point, and FinalRequest seals the message.
//
// Without an explicit Content-Length the body is sent chunked; with one, every
// write counts against the declared size.
type ResponseWriter interface {
	// Header returns the response headers. Mutations after the header was
	// sent have no effect on the wire.
	Header() *Header

	// WriteHeader records the status code. Only the first call counts; a
	// body write without it implies 200.
	WriteHeader(code int)

	// Status returns the status code the response carries or will carry.
	Status() int

	// Write sends p as body data, sending the header section first when
	// still pending.
	Write(p []byte) (int, error)

	// Writev sends the slices as one body unit. In chunked mode they form a
	// single chunk, saving per-slice framing on multi-part media payloads.
	Writev(parts [][]byte) (int64, error)

	// FinalRequest completes the response: sends the header if no write did,
	// terminates chunked framing and verifies fixed-length framing.
	FinalRequest() error
}

type responseWriter struct {
	dst io.Writer

	hdr           *Header
	status        int
	statusSet     bool
	headerSent    bool
	finalized     bool
	chunked       bool
	contentLength int64
	written       int64
}

// NewResponseWriter creates a response writer over dst. dst is typically a
// buffered connection writer; flushing it stays the caller's concern.
func NewResponseWriter(dst io.Writer) ResponseWriter {
	return &responseWriter{
		dst:           dst,
		hdr:           NewHeader(),
		status:        StatusOK,
		contentLength: -1,
	}
}

func (w *responseWriter) Header() *Header { return w.hdr }

func (w *responseWriter) Status() int { return w.status }

func (w *responseWriter) WriteHeader(code int) {
	if w.statusSet || w.headerSent {
		return
	}
	w.status = code
	w.statusSet = true
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if err := w.prepareBodyWrite(p); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if w.chunked {
		if err := w.writeChunk(int64(len(p)), p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	if w.written+int64(len(p)) > w.contentLength {
		return 0, fmt.Errorf("write %d bytes at offset %d of %d: %w",
			len(p), w.written, w.contentLength, ErrContentLengthExceeded)
	}
	n, err := w.dst.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Writev(parts [][]byte) (int64, error) {
	var total int64
	for _, p := range parts {
		total += int64(len(p))
	}

	var probe []byte
	if len(parts) > 0 {
		probe = parts[0]
	}
	if err := w.prepareBodyWrite(probe); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	if w.chunked {
		if err := w.writeChunk(total, parts...); err != nil {
			return 0, err
		}
		return total, nil
	}

	if w.written+total > w.contentLength {
		return 0, fmt.Errorf("writev %d bytes at offset %d of %d: %w",
			total, w.written, w.contentLength, ErrContentLengthExceeded)
	}
	var sent int64
	for _, p := range parts {
		n, err := w.dst.Write(p)
		sent += int64(n)
		w.written += int64(n)
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (w *responseWriter) FinalRequest() error {
	if w.finalized {
		return ErrResponseFinalized
	}
	if !w.headerSent {
		// No body was written: an undeclared length collapses to an exact
		// empty fixed-length response instead of an empty chunked one.
		if w.hdr.ContentLength() < 0 && BodyAllowedForStatus(w.status) {
			w.hdr.SetContentLength(0)
		}
		if err := w.sendHeader(nil); err != nil {
			return err
		}
	}
	w.finalized = true

	if w.chunked {
		if _, err := io.WriteString(w.dst, "0\r\n\r\n"); err != nil {
			return fmt.Errorf("write chunked trailer: %w", err)
		}
		return nil
	}
	if w.contentLength >= 0 && w.written < w.contentLength {
		return fmt.Errorf("wrote %d of %d bytes: %w",
			w.written, w.contentLength, ErrShortContentLength)
	}
	return nil
}

// prepareBodyWrite enforces the state machine ahead of a body write and sends
// the header section when it is still pending. probe carries the first body
// bytes for content sniffing.
func (w *responseWriter) prepareBodyWrite(probe []byte) error {
	if w.finalized {
		return ErrResponseFinalized
	}
	if !w.headerSent {
		return w.sendHeader(probe)
	}
	if !BodyAllowedForStatus(w.status) {
		return fmt.Errorf("status %d: %w", w.status, ErrBodyNotAllowed)
	}
	return nil
}

// sendHeader fixes the framing mode and emits the status line and header
// section.
func (w *responseWriter) sendHeader(probe []byte) error {
	bodyAllowed := BodyAllowedForStatus(w.status)
	if !bodyAllowed && len(probe) > 0 {
		return fmt.Errorf("status %d: %w", w.status, ErrBodyNotAllowed)
	}
	w.headerSent = true

	if bodyAllowed {
		if w.hdr.ContentType() == "" {
			w.hdr.SetContentType(DetectContentType(probe))
		}
		w.contentLength = w.hdr.ContentLength()
		if w.contentLength < 0 {
			w.chunked = true
			w.hdr.Set("Transfer-Encoding", "chunked")
		}
	} else {
		w.hdr.Del("Content-Length")
		w.hdr.Del("Transfer-Encoding")
		w.contentLength = 0
	}
	if w.hdr.Get("Server") == "" {
		w.hdr.Set("Server", ServerName)
	}

	statusLine := "HTTP/1.1 " + strconv.Itoa(w.status) + " " + StatusText(w.status) + "\r\n"
	if _, err := io.WriteString(w.dst, statusLine); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	if err := w.hdr.Write(w.dst); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := io.WriteString(w.dst, "\r\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// writeChunk emits one chunk: "<size hex>\r\n" then the payload slices then
// "\r\n".
func (w *responseWriter) writeChunk(size int64, parts ...[]byte) error {
	if _, err := io.WriteString(w.dst, strconv.FormatInt(size, 16)+"\r\n"); err != nil {
		return fmt.Errorf("write chunk header: %w", err)
	}
	for _, p := range parts {
		if _, err := w.dst.Write(p); err != nil {
			return fmt.Errorf("write chunk data: %w", err)
		}
	}
	if _, err := io.WriteString(w.dst, "\r\n"); err != nil {
		return fmt.Errorf("write chunk trailer: %w", err)
	}
	w.written += size
	return nil
}
