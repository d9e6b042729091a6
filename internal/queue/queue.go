// Package queue defines the work queue contract shared by the worker pool.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Dequeue once a closed queue has been drained.
var ErrClosed = errors.New("queue closed")

// Queue provides context-aware enqueue/dequeue semantics.
type Queue[T any] interface {
	Enqueue(ctx context.Context, item T) error
	Dequeue(ctx context.Context) (T, error)
}
