// Package dispatcher fans a fixed list of items out to a bounded worker pool
// and gathers the results back into their original order.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/queue/memory"
	"github.com/JakeFAU/primerblast-validator/internal/worker"
)

// DefaultWorkers is the pool size used when Config.Workers is not positive.
const DefaultWorkers = 8

// Config controls the pool.
type Config struct {
	Workers int
}

// Dispatcher runs a Handler over a list with a bounded number of workers.
type Dispatcher[T any] struct {
	workers int
	handle  worker.Handler[T]
	observe Observer[T]
	logger  *zap.Logger
}

// New creates a Dispatcher. observe may be nil.
func New[T any](cfg Config, handle worker.Handler[T], observe Observer[T], logger *zap.Logger) *Dispatcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher[T]{
		workers: workers,
		handle:  handle,
		observe: observe,
		logger:  logger,
	}
}

// Run processes every item and blocks until all are done or ctx ends. The
// returned slice holds the completed results in input order; it is shorter
// than items only when ctx ended early.
func (d *Dispatcher[T]) Run(ctx context.Context, items []T) []T {
	slots := NewSlots[T](len(items))
	if len(items) == 0 {
		return slots.Completed()
	}

	q := memory.NewQueue[worker.Item[T]](len(items))
	for i, it := range items {
		// Capacity equals len(items): this only fails on a canceled context.
		if err := q.Enqueue(ctx, worker.Item[T]{Position: i, Value: it}); err != nil {
			d.logger.Warn("enqueue stopped", zap.Int("position", i), zap.Error(err))
			break
		}
	}
	q.Close()

	n := min(d.workers, len(items))
	var wg sync.WaitGroup
	for i := range n {
		w := worker.New(q, d.handle, func(pos int, v T) {
			slots.Put(pos, v, d.observe)
		}, d.logger.With(zap.Int("worker", i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Wait()

	d.logger.Debug("dispatch finished", zap.Int("completed", slots.Done()), zap.Int("total", len(items)))
	return slots.Completed()
}
