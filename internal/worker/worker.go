// Package worker implements the per-job execution loop of the worker pool.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/metrics"
	"github.com/JakeFAU/primerblast-validator/internal/queue"
)

// Item is a unit of work tagged with its position in the input list.
type Item[T any] struct {
	Position int
	Value    T
}

// Handler processes one item and returns its result. Handlers report
// per-item failures in the returned value, never by aborting the pool.
type Handler[T any] func(ctx context.Context, item Item[T]) T

// CompleteFunc receives each result together with its original position.
type CompleteFunc[T any] func(position int, value T)

// Worker consumes queue items and hands results to a CompleteFunc.
type Worker[T any] struct {
	queue    queue.Queue[Item[T]]
	handle   Handler[T]
	complete CompleteFunc[T]
	logger   *zap.Logger
}

// New constructs a Worker.
func New[T any](q queue.Queue[Item[T]], handle Handler[T], complete CompleteFunc[T], logger *zap.Logger) *Worker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker[T]{
		queue:    q,
		handle:   handle,
		complete: complete,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the queue is drained or the context
// finishes.
func (w *Worker[T]) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, item)
	}
}

func (w *Worker[T]) process(ctx context.Context, item Item[T]) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	out := w.safeHandle(ctx, item)
	if w.complete != nil {
		w.complete(item.Position, out)
	}
}

// safeHandle turns a handler panic into an unchanged result so one bad record
// cannot stop the pool.
func (w *Worker[T]) safeHandle(ctx context.Context, item Item[T]) (out T) {
	out = item.Value
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panicked", zap.Int("position", item.Position), zap.Any("panic", r))
			out = item.Value
		}
	}()
	return w.handle(ctx, item)
}
