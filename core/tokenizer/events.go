package tokenizer

// EventKind identifies one kind of parse event.
type EventKind uint8

const (
	EventMessageBegin EventKind = iota
	EventURL
	EventHeaderField
	EventHeaderValue
	EventHeadersComplete
	EventBody
	EventChunkHeader
	EventChunkComplete
	EventMessageComplete
)

var eventKindNames = [...]string{
	EventMessageBegin:    "message_begin",
	EventURL:             "url",
	EventHeaderField:     "header_field",
	EventHeaderValue:     "header_value",
	EventHeadersComplete: "headers_complete",
	EventBody:            "body",
	EventChunkHeader:     "chunk_header",
	EventChunkComplete:   "chunk_complete",
	EventMessageComplete: "message_complete",
}

// String returns the event kind name.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is one tagged parse event produced by Feed.
//
// Data is set for EventURL, EventHeaderField, EventHeaderValue and EventBody.
// URL and header payloads are copied and remain valid indefinitely. Body
// payloads alias the slice passed to Feed to avoid copying media data on the
// hot path; consume or copy them before the next Feed call.
type Event struct {
	Kind EventKind
	Data []byte

	// ChunkSize is the declared size of the incoming chunk for
	// EventChunkHeader; zero for the final chunk.
	ChunkSize int64
}
