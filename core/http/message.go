package http

import (
	"fmt"
	"io"
	"strings"
)

// Common request methods.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
	MethodConnect = "CONNECT"
)

// Message is one parsed HTTP request. It is built by MessageBuilder and is
// valid until the next call to Next on the same builder: the body reader
// drains the shared connection stream.
type Message struct {
	method        string
	rawURL        string
	uri           *URI
	header        *Header
	keepAlive     bool
	contentLength int64
	body          io.Reader
}

// NewMessage assembles a request message. target is the request-target from
// the start line; origin-form targets ("/path") are resolved against the Host
// header. body may be nil for bodyless requests.
func NewMessage(method, target string, header *Header, keepAlive bool, body io.Reader) (*Message, error) {
	rawURL := target
	if strings.HasPrefix(target, "/") {
		host := header.Get("Host")
		if host == "" {
			host = "localhost"
		}
		rawURL = "http://" + host + target
	}

	uri, err := ParseURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("request target %q: %w", target, err)
	}

	if body == nil {
		body = strings.NewReader("")
	}
	return &Message{
		method:        method,
		rawURL:        rawURL,
		uri:           uri,
		header:        header,
		keepAlive:     keepAlive,
		contentLength: header.ContentLength(),
		body:          body,
	}, nil
}

// Method returns the request method, for example "GET".
func (m *Message) Method() string { return m.method }

func (m *Message) IsGet() bool     { return m.method == MethodGet }
func (m *Message) IsPut() bool     { return m.method == MethodPut }
func (m *Message) IsPost() bool    { return m.method == MethodPost }
func (m *Message) IsDelete() bool  { return m.method == MethodDelete }
func (m *Message) IsOptions() bool { return m.method == MethodOptions }

// IsKeepAlive reports the connection verdict parsed from the request: true
// means the connection may serve another request after this one.
func (m *Message) IsKeepAlive() bool { return m.keepAlive }

// URL returns the absolute request URL.
func (m *Message) URL() string { return m.rawURL }

// URI returns the parsed request URI.
func (m *Message) URI() *URI { return m.uri }

// Host returns the request host without port.
func (m *Message) Host() string { return m.uri.Host() }

// Path returns the request path, never empty.
func (m *Message) Path() string { return m.uri.Path() }

// Query returns the raw query string without the leading '?'.
func (m *Message) Query() string { return m.uri.RawQuery() }

// QueryGet returns the decoded query value for key, or "".
func (m *Message) QueryGet(key string) string { return m.uri.Query(key) }

// Header returns the request headers.
func (m *Message) Header() *Header { return m.header }

// ContentLength returns the declared body size, or -1 when unknown. Chunked
// requests report -1.
func (m *Message) ContentLength() int64 { return m.contentLength }

// Body returns the request body reader. It yields io.EOF at the end of the
// declared body; the connection itself stays open.
func (m *Message) Body() io.Reader { return m.body }

// ReadBody drains and returns the whole request body.
func (m *Message) ReadBody() ([]byte, error) {
	return io.ReadAll(m.body)
}

// IsJSONP reports whether the request asks for a JSONP response, which the
// API surface signals with a callback query parameter.
func (m *Message) IsJSONP() bool {
	return m.QueryGet("callback") != ""
}
