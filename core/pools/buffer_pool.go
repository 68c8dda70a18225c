// Package pools provides the shared byte-buffer pool used for connection
// read buffers and media copy buffers.
package pools

import (
	"sync"
	"sync/atomic"
)

// Buffer tiers. Header parsing needs little, de-chunking a typical request
// fits the middle tier, and media relays want large copy buffers.
const (
	HeaderBufferSize = 4 * 1024
	ReadBufferSize   = 16 * 1024
	StreamBufferSize = 64 * 1024
)

// BufferPool hands out byte buffers in three capacity tiers. Buffers above
// the largest tier are never pooled.
type BufferPool struct {
	header sync.Pool
	read   sync.Pool
	stream sync.Pool

	gets atomic.Uint64
	puts atomic.Uint64
}

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	newTier := func(size int) sync.Pool {
		return sync.Pool{
			New: func() any {
				buf := make([]byte, 0, size)
				return &buf
			},
		}
	}
	return &BufferPool{
		header: newTier(HeaderBufferSize),
		read:   newTier(ReadBufferSize),
		stream: newTier(StreamBufferSize),
	}
}

// Get returns a zero-length buffer whose capacity covers estimatedSize, up
// to the largest tier.
func (bp *BufferPool) Get(estimatedSize int) *[]byte {
	bp.gets.Add(1)
	switch {
	case estimatedSize <= HeaderBufferSize:
		return bp.header.Get().(*[]byte)
	case estimatedSize <= ReadBufferSize:
		return bp.read.Get().(*[]byte)
	default:
		return bp.stream.Get().(*[]byte)
	}
}

// Put returns buf to its tier. Oversized buffers are dropped for the GC.
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	bp.puts.Add(1)
	*buf = (*buf)[:0]
	switch c := cap(*buf); {
	case c <= HeaderBufferSize:
		bp.header.Put(buf)
	case c <= ReadBufferSize:
		bp.read.Put(buf)
	case c <= StreamBufferSize:
		bp.stream.Put(buf)
	}
}

// Stats reports pool traffic counters.
func (bp *BufferPool) Stats() (gets, puts uint64) {
	return bp.gets.Load(), bp.puts.Load()
}

var globalBufferPool = NewBufferPool()

// AcquireBuffer gets a buffer from the process-wide pool.
func AcquireBuffer(estimatedSize int) *[]byte {
	return globalBufferPool.Get(estimatedSize)
}

// ReleaseBuffer returns a buffer to the process-wide pool.
func ReleaseBuffer(buf *[]byte) {
	globalBufferPool.Put(buf)
}

// GlobalStats reports traffic counters of the process-wide pool.
func GlobalStats() (gets, puts uint64) {
	return globalBufferPool.Stats()
}
