// Package tokenizer turns a raw HTTP/1.1 octet stream into an ordered sequence
// of parse events. It replaces callback-driven parsing with a pull model: the
// caller feeds byte slices and receives the finite event list each slice
// produced, in wire order. The tokenizer carries no transport or message
// assembly logic; it only frames the stream.
package tokenizer

import "bytes"

// DefaultMaxHeaderBytes bounds the header section of a single message,
// matching the classic http-parser limit.
const DefaultMaxHeaderBytes = 80 * 1024

// maxChunkSizeLine bounds a chunk-size line including extensions.
const maxChunkSizeLine = 1024

type state uint8

const (
	stateStartLine state = iota
	stateHeaders
	stateBodyIdentity
	stateChunkSize
	stateChunkData
	stateChunkDataEnd
	stateTrailer
	stateClosed
)

// Options configures a Tokenizer. The header limit is an explicit value here
// rather than process-wide mutable state.
type Options struct {
	// MaxHeaderBytes limits the total size of a message's start line, header
	// lines and trailers. Zero selects DefaultMaxHeaderBytes.
	MaxHeaderBytes int
}

// Tokenizer is an incremental HTTP/1.1 request tokenizer. It is not safe for
// concurrent use; each connection owns exactly one.
type Tokenizer struct {
	maxHeaderBytes int

	state state
	line  []byte // partial line carried across Feed calls
	nread int    // header bytes seen for the current message

	method    string
	url       []byte
	httpMajor int
	httpMinor int

	contentLength int64
	chunked       bool
	connClose     bool
	connKeepAlive bool
	skipBody      bool
	headersDone   bool
	keepAlive     bool

	remaining int64 // body or chunk bytes still expected
}

// New creates a tokenizer ready to parse the first request on a connection.
func New(opts Options) *Tokenizer {
	max := opts.MaxHeaderBytes
	if max <= 0 {
		max = DefaultMaxHeaderBytes
	}
	t := &Tokenizer{maxHeaderBytes: max}
	t.resetMessage()
	return t
}

// resetMessage clears per-message parse state. The keep-alive verdict of the
// previous message is deliberately left intact.
func (t *Tokenizer) resetMessage() {
	t.method = ""
	t.url = t.url[:0]
	t.httpMajor = 0
	t.httpMinor = 0
	t.contentLength = -1
	t.chunked = false
	t.connClose = false
	t.connKeepAlive = false
	t.headersDone = false
	t.remaining = 0
}

// Method returns the request method of the message being parsed.
func (t *Tokenizer) Method() string { return t.method }

// HTTPVersion returns the major and minor protocol version of the message
// being parsed.
func (t *Tokenizer) HTTPVersion() (major, minor int) { return t.httpMajor, t.httpMinor }

// ShouldKeepAlive reports whether the connection may carry further messages.
// The verdict is valid once the current message's headers are complete:
// HTTP/1.1 keeps alive unless "Connection: close" was seen, HTTP/1.0 requires
// an explicit "Connection: keep-alive".
func (t *Tokenizer) ShouldKeepAlive() bool { return t.keepAlive }

// SkipBody marks the next message as bodyless regardless of its framing
// headers, answering the HEAD-style "no body expected" case of the event
// contract. The mark is consumed when that message completes. It must be set
// before the bytes following the header terminator are fed.
func (t *Tokenizer) SkipBody() { t.skipBody = true }

// Feed consumes p and returns the parse events it produced, in order. On
// error the returned events up to the failure point are still valid; the
// tokenizer must then be discarded along with the connection.
func (t *Tokenizer) Feed(p []byte) ([]Event, error) {
	var events []Event
	var err error

	for len(p) > 0 {
		switch t.state {
		case stateClosed:
			return events, ErrClosedConnection

		case stateStartLine, stateHeaders, stateChunkSize, stateChunkDataEnd, stateTrailer:
			lineState := t.state
			nl := bytes.IndexByte(p, '\n')
			if nl < 0 {
				t.line = append(t.line, p...)
				if err := t.accountLineBytes(lineState, len(p)); err != nil {
					return events, err
				}
				return events, nil
			}
			t.line = append(t.line, p[:nl]...)
			if err := t.accountLineBytes(lineState, nl+1); err != nil {
				return events, err
			}
			p = p[nl+1:]

			line := t.line
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			events, err = t.processLine(line, events)
			t.line = t.line[:0]
			if err != nil {
				return events, err
			}

		case stateBodyIdentity:
			n := int64(len(p))
			if n > t.remaining {
				n = t.remaining
			}
			events = append(events, Event{Kind: EventBody, Data: p[:n]})
			t.remaining -= n
			p = p[n:]
			if t.remaining == 0 {
				events = t.finishMessage(events)
			}

		case stateChunkData:
			n := int64(len(p))
			if n > t.remaining {
				n = t.remaining
			}
			events = append(events, Event{Kind: EventBody, Data: p[:n]})
			t.remaining -= n
			p = p[n:]
			if t.remaining == 0 {
				t.state = stateChunkDataEnd
			}

		default:
			return events, ErrInvalidInternalState
		}
	}
	return events, nil
}

// accountLineBytes enforces the header-size and chunk-size-line limits while
// a line is being accumulated.
func (t *Tokenizer) accountLineBytes(s state, n int) error {
	switch s {
	case stateStartLine, stateHeaders, stateTrailer:
		t.nread += n
		if t.nread > t.maxHeaderBytes {
			return ErrHeaderOverflow
		}
	case stateChunkSize:
		if len(t.line) > maxChunkSizeLine {
			return ErrInvalidChunkSize
		}
	}
	return nil
}

func (t *Tokenizer) processLine(line []byte, events []Event) ([]Event, error) {
	switch t.state {
	case stateStartLine:
		// Tolerate blank lines between pipelined requests.
		if len(line) == 0 {
			return events, nil
		}
		if err := t.parseRequestLine(line); err != nil {
			return events, err
		}
		events = append(events, Event{Kind: EventMessageBegin})
		events = append(events, Event{Kind: EventURL, Data: copyBytes(t.url)})
		t.state = stateHeaders
		return events, nil

	case stateHeaders:
		if len(line) == 0 {
			return t.finishHeaders(events)
		}
		name, value, err := splitHeaderLine(line)
		if err != nil {
			return events, err
		}
		if err := t.observeHeader(name, value); err != nil {
			return events, err
		}
		events = append(events, Event{Kind: EventHeaderField, Data: copyBytes(name)})
		events = append(events, Event{Kind: EventHeaderValue, Data: copyBytes(value)})
		return events, nil

	case stateChunkSize:
		size, err := parseChunkSize(line)
		if err != nil {
			return events, err
		}
		events = append(events, Event{Kind: EventChunkHeader, ChunkSize: size})
		if size == 0 {
			t.state = stateTrailer
		} else {
			t.remaining = size
			t.state = stateChunkData
		}
		return events, nil

	case stateChunkDataEnd:
		// Every chunk's data must be followed by a bare CRLF.
		if len(line) != 0 {
			return events, ErrInvalidConstant
		}
		events = append(events, Event{Kind: EventChunkComplete})
		t.state = stateChunkSize
		return events, nil

	case stateTrailer:
		if len(line) == 0 {
			events = append(events, Event{Kind: EventChunkComplete})
			return t.finishMessage(events), nil
		}
		// Trailer headers are framed but not surfaced.
		return events, nil
	}
	return events, ErrInvalidInternalState
}

func (t *Tokenizer) parseRequestLine(line []byte) error {
	t.resetMessage()

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return ErrInvalidMethod
	}
	method := line[:sp1]
	if !validMethod(method) {
		return ErrInvalidMethod
	}

	rest := line[sp1+1:]
	sp2 := bytes.LastIndexByte(rest, ' ')
	if sp2 <= 0 {
		return ErrInvalidURL
	}
	url := rest[:sp2]
	if bytes.IndexByte(url, ' ') >= 0 {
		return ErrInvalidURL
	}

	major, minor, ok := parseVersion(rest[sp2+1:])
	if !ok {
		return ErrInvalidVersion
	}

	t.method = string(method)
	t.httpMajor = major
	t.httpMinor = minor
	t.url = append(t.url[:0], url...)
	return nil
}

// observeHeader tracks the framing-relevant headers as they stream past.
func (t *Tokenizer) observeHeader(name, value []byte) error {
	switch {
	case asciiEqualFold(name, "Content-Length"):
		if t.chunked || t.contentLength >= 0 {
			return ErrUnexpectedContentLength
		}
		n, err := parseContentLength(value)
		if err != nil {
			return err
		}
		t.contentLength = n

	case asciiEqualFold(name, "Transfer-Encoding"):
		if asciiContainsFold(value, "chunked") {
			if t.contentLength >= 0 {
				return ErrUnexpectedContentLength
			}
			t.chunked = true
		}

	case asciiEqualFold(name, "Connection"):
		if asciiContainsFold(value, "close") {
			t.connClose = true
		}
		if asciiContainsFold(value, "keep-alive") {
			t.connKeepAlive = true
		}
	}
	return nil
}

func (t *Tokenizer) finishHeaders(events []Event) ([]Event, error) {
	t.headersDone = true
	if t.httpMajor == 1 && t.httpMinor >= 1 {
		t.keepAlive = !t.connClose
	} else {
		t.keepAlive = t.connKeepAlive
	}
	events = append(events, Event{Kind: EventHeadersComplete})

	switch {
	case t.skipBody:
		return t.finishMessage(events), nil

	case t.method == "CONNECT":
		// CONNECT-style: no body and no further messages on this connection.
		events = append(events, Event{Kind: EventMessageComplete})
		t.state = stateClosed
		t.nread = 0
		return events, nil

	case t.chunked:
		t.state = stateChunkSize
		return events, nil

	case t.contentLength > 0:
		t.remaining = t.contentLength
		t.state = stateBodyIdentity
		return events, nil

	default:
		// No Content-Length and not chunked: a request carries no body.
		return t.finishMessage(events), nil
	}
}

func (t *Tokenizer) finishMessage(events []Event) []Event {
	events = append(events, Event{Kind: EventMessageComplete})
	t.skipBody = false
	if t.keepAlive {
		t.state = stateStartLine
	} else {
		t.state = stateClosed
	}
	t.nread = 0
	return events
}

func splitHeaderLine(line []byte) (name, value []byte, err error) {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return nil, nil, ErrInvalidHeaderToken
	}
	name = line[:colon]
	for _, c := range name {
		if !isTokenChar(c) {
			return nil, nil, ErrInvalidHeaderToken
		}
	}
	value = trimOWS(line[colon+1:])
	return name, value, nil
}

func parseContentLength(value []byte) (int64, error) {
	if len(value) == 0 {
		return 0, ErrInvalidContentLength
	}
	var n int64
	for _, c := range value {
		if c < '0' || c > '9' {
			return 0, ErrInvalidContentLength
		}
		if n > (1<<62)/10 {
			return 0, ErrInvalidContentLength
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

func parseChunkSize(line []byte) (int64, error) {
	// Chunk extensions after ';' are tolerated and ignored.
	if semi := bytes.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	line = trimOWS(line)
	if len(line) == 0 {
		return 0, ErrInvalidChunkSize
	}
	var n int64
	for _, c := range line {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, ErrInvalidChunkSize
		}
		if n > (1<<62)/16 {
			return 0, ErrInvalidChunkSize
		}
		n = n*16 + d
	}
	return n, nil
}

func parseVersion(proto []byte) (major, minor int, ok bool) {
	// Exactly "HTTP/<digit>.<digit>".
	if len(proto) != 8 || string(proto[:5]) != "HTTP/" || proto[6] != '.' {
		return 0, 0, false
	}
	if !isDigit(proto[5]) || !isDigit(proto[7]) {
		return 0, 0, false
	}
	return int(proto[5] - '0'), int(proto[7] - '0'), true
}

func validMethod(m []byte) bool {
	for _, c := range m {
		if (c < 'A' || c > 'Z') && c != '-' {
			return false
		}
	}
	return len(m) > 0
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func asciiEqualFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		if lowerASCII(b[i]) != lowerASCII(s[i]) {
			return false
		}
	}
	return true
}

func asciiContainsFold(b []byte, s string) bool {
	for i := 0; i+len(s) <= len(b); i++ {
		if asciiEqualFold(b[i:i+len(s)], s) {
			return true
		}
	}
	return false
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
