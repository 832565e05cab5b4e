package queue

import (
	"context"
	"sync"
)

// ensure interface is implemented
var _ Broker = (*MemoryBroker)(nil)

// MemoryBroker is an in-process Broker used in single-node dev mode,
// where the API server and the worker share one process, and in tests.
type MemoryBroker struct {
	mu     sync.Mutex
	items  []string
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// NewMemoryBroker creates an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Push appends a value to the queue.
func (b *MemoryBroker) Push(ctx context.Context, value string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.items = append(b.items, value)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest value, blocking until one is
// pushed, the broker is closed, or ctx is cancelled.
func (b *MemoryBroker) Pop(ctx context.Context) (string, error) {
	for {
		b.mu.Lock()
		if len(b.items) > 0 {
			value := b.items[0]
			b.items = b.items[1:]
			b.mu.Unlock()
			return value, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return "", ErrClosed
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-b.done:
			return "", ErrClosed
		case <-b.wake:
		}
	}
}

// Len reports the number of queued values.
func (b *MemoryBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Close unblocks pending and future Pops with ErrClosed.
func (b *MemoryBroker) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	b.mu.Unlock()
}
