package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 8, MaxBatchEvents: 2, MaxBatchWait: time.Minute}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		b := sink.Batches()
		return len(b) == 1 && len(b[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 10, MaxBatchWait: 25 * time.Millisecond}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageJobDone))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubEmitNonBlockingWhenFull(t *testing.T) {
	t.Parallel()

	hub := &Hub{events: make(chan Event), logger: zap.NewNop()}
	start := time.Now()
	hub.Emit(sampleEvent(StageRunStart))
	hub.Emit(sampleEvent(StageRunStart))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	// The first drop is logged and resets the counter; the second is pending.
	assert.EqualValues(t, 1, hub.dropped.Load())
}

func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 100, MaxBatchWait: time.Minute}, sink)

	hub.Emit(sampleEvent(StageRunDone))
	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.True(t, sink.Closed())

	hub.Emit(sampleEvent(StageRunDone))
	assert.Len(t, sink.Batches(), 1)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, sink)
	bad := sampleEvent(StageJobDone)
	bad.Status = ""
	hub.Emit(bad)
	require.NoError(t, hub.Close(context.Background()))
	assert.Empty(t, sink.Batches())
}

func TestReporterStampsEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 100, MaxBatchWait: time.Minute}, sink)
	runID := uuid.MustParse("0190f5c2-0000-7000-8000-000000000001")
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewReporter(hub, runID, KindValidate, func() time.Time { return fixed })

	r.RunStart(3, "jobs.json")
	r.JobDone(0, "P1", "pass", 1, 3, time.Second)
	r.Checkpoint(1, 3, "out.json")
	r.RunDone(1, 3, 2*time.Second, "")
	require.NoError(t, hub.Close(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	events := batches[0]
	require.Len(t, events, 4)
	for _, evt := range events {
		assert.Equal(t, runID, evt.RunUUID())
		assert.Equal(t, KindValidate, evt.Kind)
		assert.Equal(t, fixed, evt.TS)
	}
	assert.Equal(t, []Stage{StageRunStart, StageJobDone, StageCheckpoint, StageRunDone},
		[]Stage{events[0].Stage, events[1].Stage, events[2].Stage, events[3].Stage})
	assert.Equal(t, "P1", events[1].PrimerID)
}

func TestNilReporterIsSafe(t *testing.T) {
	t.Parallel()

	var r *Reporter
	r.RunStart(1, "")
	NewReporter(nil, uuid.New(), KindSubmit, nil).JobDone(0, "P", "submitted", 1, 1, 0)
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := sampleEvent(StageCheckpoint)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{name: "missing run id", mutate: func(e *Event) { e.RunID = [16]byte{} }},
		{name: "missing timestamp", mutate: func(e *Event) { e.TS = time.Time{} }},
		{name: "unknown kind", mutate: func(e *Event) { e.Kind = "crawl" }},
		{name: "unknown stage", mutate: func(e *Event) { e.Stage = "FETCH" }},
		{name: "checkpoint without total", mutate: func(e *Event) { e.Total = 0 }},
		{name: "negative duration", mutate: func(e *Event) { e.Dur = -time.Second }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := sampleEvent(StageCheckpoint)
			tc.mutate(&evt)
			require.Error(t, evt.Validate())
		})
	}
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Event(nil), s.batches...)
}

func (s *stubSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func sampleEvent(stage Stage) Event {
	return Event{
		RunID:    UUIDToBytes(uuid.New()),
		TS:       time.Now(),
		Stage:    stage,
		Kind:     KindValidate,
		PrimerID: "P001",
		Status:   "pass",
		Done:     1,
		Total:    10,
	}
}

type failingCloseSink struct{ stubSink }

func (s *failingCloseSink) Close(ctx context.Context) error {
	_ = s.stubSink.Close(ctx)
	return errors.New("sink gone")
}

func TestHubCloseReportsSinkErrorsOnce(t *testing.T) {
	t.Parallel()

	good := newStubSink()
	bad := &failingCloseSink{}
	hub := NewHub(Config{MaxBatchEvents: 50, MaxBatchWait: time.Minute}, bad, good)

	for range 3 {
		hub.Emit(sampleEvent(StageJobDone))
	}
	err := hub.Close(context.Background())
	require.ErrorContains(t, err, "sink gone")
	require.ErrorContains(t, hub.Close(context.Background()), "sink gone")

	assert.True(t, good.Closed())
	require.Len(t, good.Batches(), 1)
	assert.Len(t, good.Batches()[0], 3)
}

func TestHubCloseRespectsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	hub := NewHub(Config{MaxBatchEvents: 1}, blockingSink{release: release})
	hub.Emit(sampleEvent(StageJobDone))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, hub.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, hub.Close(context.Background()))
}

type blockingSink struct{ release chan struct{} }

func (b blockingSink) Consume(ctx context.Context, _ []Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (blockingSink) Close(context.Context) error { return nil }
