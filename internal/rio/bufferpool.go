package rio

import "sync"

const (
	smallBufferSize = 1024
	// DefaultBufferSize is the capacity of a connection's read buffer.
	DefaultBufferSize = 8192
	largeBufferSize   = 32768
)

// bufferPool hands out fixed-capacity byte slices in three size classes.
type bufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

var globalBufferPool = &bufferPool{
	small: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	},
	medium: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, DefaultBufferSize)
			return &buf
		},
	},
	large: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeBufferSize)
			return &buf
		},
	},
}

// GetBuffer returns a buffer of exactly size bytes. Sizes above the largest
// class are allocated directly and never pooled.
func GetBuffer(size int) []byte {
	switch {
	case size <= smallBufferSize:
		buf := globalBufferPool.small.Get().(*[]byte)
		return (*buf)[:size]
	case size <= DefaultBufferSize:
		buf := globalBufferPool.medium.Get().(*[]byte)
		return (*buf)[:size]
	case size <= largeBufferSize:
		buf := globalBufferPool.large.Get().(*[]byte)
		return (*buf)[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer obtained from GetBuffer to its pool.
func PutBuffer(buf []byte) {
	switch cap(buf) {
	case smallBufferSize:
		full := buf[:smallBufferSize]
		globalBufferPool.small.Put(&full)
	case DefaultBufferSize:
		full := buf[:DefaultBufferSize]
		globalBufferPool.medium.Put(&full)
	case largeBufferSize:
		full := buf[:largeBufferSize]
		globalBufferPool.large.Put(&full)
	}
	// other capacities are left to the GC
}
