// Package http implements the HTTP/1.1 request/response abstractions of the
// media server: headers, URIs, messages, response writing and handler
// dispatch. It deliberately does not depend on net/http; the wire format is
// produced and consumed by this package together with core/tokenizer.
package http

import (
	"io"
	"sort"
	"strconv"
)

// Header is a case-sensitive header collection plus an ordered cookie list.
//
// Header names are matched exactly as written, not canonicalized: peers in the
// streaming ecosystem are known to send byte-exact header names, and the
// original server behaved this way.
type Header struct {
	headers map[string]string
	cookies []string
}

// NewHeader creates an empty header collection.
func NewHeader() *Header {
	return &Header{headers: make(map[string]string)}
}

// Set stores the value for key, overwriting any existing value.
func (h *Header) Set(key, value string) {
	h.headers[key] = value
}

// Get returns the value for key, or "" when absent.
func (h *Header) Get(key string) string {
	return h.headers[key]
}

// Del removes the entry for key.
func (h *Header) Del(key string) {
	delete(h.headers, key)
}

// Count returns the number of header entries, cookies excluded.
func (h *Header) Count() int {
	return len(h.headers)
}

// AddCookie appends a Set-Cookie value. Multiple cookies are allowed and
// serialized in insertion order.
func (h *Header) AddCookie(v string) {
	h.cookies = append(h.cookies, v)
}

// ContentLength returns the parsed Content-Length, or -1 when not set.
func (h *Header) ContentLength() int64 {
	v, ok := h.headers["Content-Length"]
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// SetContentLength stores size as the Content-Length entry.
func (h *Header) SetContentLength(size int64) {
	h.headers["Content-Length"] = strconv.FormatInt(size, 10)
}

// ContentType returns the Content-Type entry, or "" when not set.
func (h *Header) ContentType() string {
	return h.headers["Content-Type"]
}

// SetContentType stores ct as the Content-Type entry.
func (h *Header) SetContentType(ct string) {
	h.headers["Content-Type"] = ct
}

// Write serializes every header as "Name: Value\r\n" in sorted name order,
// followed by one "Set-Cookie: v\r\n" line per cookie. The terminating blank
// line is the caller's responsibility.
func (h *Header) Write(w io.Writer) error {
	keys := make([]string, 0, len(h.headers))
	for k := range h.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := io.WriteString(w, k+": "+h.headers[k]+"\r\n"); err != nil {
			return err
		}
	}
	for _, c := range h.cookies {
		if _, err := io.WriteString(w, "Set-Cookie: "+c+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}
