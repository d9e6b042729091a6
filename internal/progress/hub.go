package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
type Config struct {
	// BufferSize is the event channel capacity (default 4096).
	BufferSize int
	// MaxBatchEvents flushes once this many events are queued (default 256).
	MaxBatchEvents int
	// MaxBatchWait flushes a partial batch after this long (default 500ms).
	MaxBatchWait time.Duration
	// SinkTimeout bounds each sink call (default 10s).
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultBufferSize     = 4096
	defaultMaxBatchEvents = 256
	defaultMaxBatchWait   = 500 * time.Millisecond
	defaultSinkTimeout    = 10 * time.Second
	dropLogInterval       = 5 * time.Second
)

// Hub batches events and fans them out to sinks. Emit never blocks.
type Hub struct {
	cfg    Config
	sinks  []Sink
	events chan Event
	done   chan struct{}
	logger *zap.Logger

	// mu guards closing events against concurrent sends.
	mu     sync.RWMutex
	closed bool

	sinksOnce sync.Once
	sinksErr  error

	dropped atomic.Int64
	lastLog atomic.Int64
}

// NewHub starts the batching goroutine and returns a ready Hub.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatchEvents <= 0 {
		cfg.MaxBatchEvents = defaultMaxBatchEvents
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go h.run()
	return h
}

// Emit enqueues an event. When the buffer is full the event is dropped and a
// rate-limited warning is logged. Events emitted after Close are ignored.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.events <- evt:
	default:
		h.noteDrop()
	}
}

func (h *Hub) noteDrop() {
	h.dropped.Add(1)
	now := time.Now().UnixNano()
	last := h.lastLog.Load()
	if now-last < dropLogInterval.Nanoseconds() || !h.lastLog.CompareAndSwap(last, now) {
		return
	}
	h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped", h.dropped.Swap(0)))
}

// Close stops intake, waits for buffered events to reach the sinks and then
// closes the sinks. Later calls wait the same way and return the first
// sink close error.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.events)
	}
	h.mu.Unlock()

	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
	h.sinksOnce.Do(func() { h.sinksErr = h.closeSinks(ctx) })
	return h.sinksErr
}

// run collects events into batches. A batch goes out when it is full or
// MaxBatchWait after its first event; whatever is left goes out once events
// is closed.
func (h *Hub) run() {
	defer close(h.done)

	pending := make([]Event, 0, h.cfg.MaxBatchEvents)
	deadline := time.NewTimer(h.cfg.MaxBatchWait)
	deadline.Stop()
	defer deadline.Stop()

	send := func() {
		deadline.Stop()
		h.deliver(pending)
		pending = pending[:0]
	}

	for {
		select {
		case evt, ok := <-h.events:
			if !ok {
				send()
				return
			}
			pending = append(pending, evt)
			if len(pending) >= h.cfg.MaxBatchEvents {
				send()
			} else if len(pending) == 1 {
				deadline.Reset(h.cfg.MaxBatchWait)
			}
		case <-deadline.C:
			send()
		}
	}
}

// deliver hands a copy of batch to every sink, each under SinkTimeout.
func (h *Hub) deliver(batch []Event) {
	if len(batch) == 0 {
		return
	}
	events := append([]Event(nil), batch...)
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		err := sink.Consume(ctx, events)
		cancel()
		if err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
	}
}

func (h *Hub) closeSinks(ctx context.Context) error {
	var errs []error
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
