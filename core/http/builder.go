package http

import (
	"fmt"
	"io"

	"github.com/searchktools/stream-server/core/pools"
	"github.com/searchktools/stream-server/core/tokenizer"
)

// readBufSize is the per-connection read buffer for request parsing.
const readBufSize = 8 * 1024

// MessageBuilder turns the byte stream of one connection into a sequence of
// request messages. It owns a tokenizer and a read buffer; Next blocks on the
// underlying reader until a full header section arrived, then hands the body
// over as a lazily drained reader.
//
// Pipelined requests work naturally: bytes past the current message stay
// queued as parse events and the next call to Next picks them up without
// touching the connection.
type MessageBuilder struct {
	src io.Reader
	tok *tokenizer.Tokenizer

	buf    []byte
	bufp   *[]byte
	events []tokenizer.Event
	next   int

	body    *bodyReader
	err     error
	feedErr error
	eof     bool
}

// NewMessageBuilder creates a builder reading from src with the given header
// size limit. maxHeaderBytes <= 0 selects the default limit. The read buffer
// comes from the shared pool; call Close when the connection is done.
func NewMessageBuilder(src io.Reader, maxHeaderBytes int) *MessageBuilder {
	bufp := pools.AcquireBuffer(readBufSize)
	return &MessageBuilder{
		src:  src,
		tok:  tokenizer.New(tokenizer.Options{MaxHeaderBytes: maxHeaderBytes}),
		buf:  (*bufp)[:readBufSize],
		bufp: bufp,
	}
}

// Close releases the read buffer back to the pool. The builder is unusable
// afterwards.
func (b *MessageBuilder) Close() {
	if b.bufp != nil {
		pools.ReleaseBuffer(b.bufp)
		b.bufp, b.buf = nil, nil
	}
}

// ShouldKeepAlive reports the tokenizer's connection verdict. After a parse
// error the server uses it to decide whether the connection survives the
// error response.
func (b *MessageBuilder) ShouldKeepAlive() bool {
	return b.tok.ShouldKeepAlive()
}

// Next parses and returns the next request. It returns io.EOF when the peer
// closed the connection cleanly between requests; any other error is fatal
// for the connection. The previous message's body is drained first, so
// handlers may ignore bodies they do not care about.
func (b *MessageBuilder) Next() (*Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.body != nil {
		if err := b.body.discard(); err != nil {
			b.err = err
			return nil, err
		}
		b.body = nil
	}

	var (
		began   bool
		target  string
		header  = NewHeader()
		field   string
		chunked bool
	)
	for {
		ev, err := b.nextEvent(began)
		if err != nil {
			b.err = err
			return nil, err
		}
		switch ev.Kind {
		case tokenizer.EventMessageBegin:
			began = true
		case tokenizer.EventURL:
			target = string(ev.Data)
		case tokenizer.EventHeaderField:
			field = string(ev.Data)
		case tokenizer.EventHeaderValue:
			header.Set(field, string(ev.Data))
		case tokenizer.EventHeadersComplete:
			chunked = header.Get("Transfer-Encoding") == "chunked"
			b.body = &bodyReader{b: b}
			msg, err := NewMessage(b.tok.Method(), target, header, b.tok.ShouldKeepAlive(), b.body)
			if err != nil {
				b.err = err
				return nil, err
			}
			if chunked {
				msg.contentLength = -1
			}
			return msg, nil
		}
	}
}

// nextEvent returns the next queued parse event, feeding the tokenizer from
// the connection when the queue is empty. Events that preceded a tokenizer
// error are drained before the error surfaces. inMessage controls EOF
// handling: a clean EOF between messages is io.EOF, inside a message it is a
// parse error.
func (b *MessageBuilder) nextEvent(inMessage bool) (tokenizer.Event, error) {
	for b.next >= len(b.events) {
		if b.feedErr != nil {
			return tokenizer.Event{}, b.feedErr
		}
		if b.eof {
			if inMessage {
				return tokenizer.Event{}, fmt.Errorf("parse request: %w", tokenizer.ErrInvalidEOFState)
			}
			return tokenizer.Event{}, io.EOF
		}

		n, err := b.src.Read(b.buf)
		if n > 0 {
			events, ferr := b.tok.Feed(b.buf[:n])
			// Body events alias buf, which the next Read overwrites.
			for i := range events {
				if events[i].Kind == tokenizer.EventBody {
					data := make([]byte, len(events[i].Data))
					copy(data, events[i].Data)
					events[i].Data = data
				}
			}
			b.events, b.next = events, 0
			if ferr != nil {
				b.feedErr = fmt.Errorf("parse request: %w", ferr)
			}
		}
		if err != nil {
			if err != io.EOF {
				return tokenizer.Event{}, fmt.Errorf("read request: %w", err)
			}
			b.eof = true
		}
	}

	ev := b.events[b.next]
	b.next++
	return ev, nil
}

// bodyReader streams one message body out of the builder's event queue.
type bodyReader struct {
	b    *MessageBuilder
	rest []byte
	done bool
}

func (r *bodyReader) Read(p []byte) (int, error) {
	for {
		if len(r.rest) > 0 {
			n := copy(p, r.rest)
			r.rest = r.rest[n:]
			return n, nil
		}
		if r.done {
			return 0, io.EOF
		}
		ev, err := r.b.nextEvent(true)
		if err != nil {
			return 0, err
		}
		switch ev.Kind {
		case tokenizer.EventBody:
			r.rest = ev.Data
		case tokenizer.EventMessageComplete:
			r.done = true
		}
	}
}

// discard consumes the remainder of the body so the next message starts at a
// clean stream position.
func (r *bodyReader) discard() error {
	for !r.done {
		ev, err := r.b.nextEvent(true)
		if err != nil {
			return err
		}
		if ev.Kind == tokenizer.EventMessageComplete {
			r.done = true
		}
	}
	r.rest = nil
	return nil
}
