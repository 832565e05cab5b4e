// Package queue provides the work queue broker the pipeline runs on:
// submission pushes job identifiers, the worker blocks popping them.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Pop when the broker has been shut down.
var ErrClosed = errors.New("queue closed")

// Broker is a durable queue of job identifiers. Push and Pop are each
// a single atomic remote operation; the broker's delivery semantics
// guarantee a value is handed to at most one popper under normal
// operation, which is what lets multiple workers share one queue.
type Broker interface {
	// Push appends a value to the queue.
	Push(ctx context.Context, value string) error

	// Pop removes and returns the next value, blocking until one is
	// available or ctx is cancelled.
	Pop(ctx context.Context) (string, error)
}
