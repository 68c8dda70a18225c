package tokenizer

import "errors"

// Parse errors form a fixed table: every failure the tokenizer can report is one
// of these named kinds, so callers can switch on them with errors.Is.
var (
	ErrInvalidEOFState         = errors.New("stream ended at an unexpected time")
	ErrHeaderOverflow          = errors.New("too many header bytes seen; overflow detected")
	ErrClosedConnection        = errors.New("data received after completed connection: close message")
	ErrInvalidVersion          = errors.New("invalid HTTP version")
	ErrInvalidStatus           = errors.New("invalid HTTP status code")
	ErrInvalidMethod           = errors.New("invalid HTTP method")
	ErrInvalidURL              = errors.New("invalid URL")
	ErrInvalidHost             = errors.New("invalid host")
	ErrInvalidPort             = errors.New("invalid port")
	ErrInvalidPath             = errors.New("invalid path")
	ErrInvalidQueryString      = errors.New("invalid query string")
	ErrInvalidFragment         = errors.New("invalid fragment")
	ErrLFExpected              = errors.New("LF character expected")
	ErrInvalidHeaderToken      = errors.New("invalid character in header")
	ErrInvalidContentLength    = errors.New("invalid character in content-length header")
	ErrUnexpectedContentLength = errors.New("unexpected content-length header")
	ErrInvalidChunkSize        = errors.New("invalid character in chunk size header")
	ErrInvalidConstant         = errors.New("invalid constant string")
	ErrInvalidInternalState    = errors.New("encountered unexpected internal state")
	ErrStrict                  = errors.New("strict mode assertion failed")
	ErrPaused                  = errors.New("parser is paused")
	ErrUnknown                 = errors.New("an unknown error occurred")
)
