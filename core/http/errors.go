package http

import (
	"errors"

	"github.com/searchktools/stream-server/core/tokenizer"
)

// ErrInvalidURL is the malformed-URI error class. It aliases the tokenizer's
// URL error so errors.Is matches across both layers.
var ErrInvalidURL = tokenizer.ErrInvalidURL

// Protocol errors reported by the response writer.
var (
	// ErrContentLengthExceeded is returned when writes pass the declared
	// Content-Length in fixed-length mode.
	ErrContentLengthExceeded = errors.New("written bytes exceed declared content length")

	// ErrShortContentLength is returned by FinalRequest when fewer bytes than
	// the declared Content-Length were written.
	ErrShortContentLength = errors.New("written bytes short of declared content length")

	// ErrBodyNotAllowed is returned by body writes after a status code that
	// forbids a body, like 204 or 304.
	ErrBodyNotAllowed = errors.New("status code does not allow a body")

	// ErrResponseFinalized is returned by writes after FinalRequest.
	ErrResponseFinalized = errors.New("response already finalized")
)
