package engine

import (
	"sync"
)

// DefaultBufferSize is the size of byte buffers allocated for file
// copies. 1MB balances syscall overhead against memory held per stream.
const DefaultBufferSize = 1 * 1024 * 1024

// BufferPool manages reusable byte buffers so concurrent transfers
// don't churn the garbage collector.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a BufferPool allocating buffers of the given
// size. If size is <= 0, DefaultBufferSize is used.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a reusable byte buffer from the pool. The caller should
// defer Put once finished.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns the buffer to the pool. The caller must not touch the
// buffer afterwards.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
