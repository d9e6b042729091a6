package sinks

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/JakeFAU/primerblast-validator/internal/progress"
)

// RunSnapshot is the live state of one run as seen by TallySink.
type RunSnapshot struct {
	RunID          string         `json:"run_id"`
	Kind           string         `json:"kind"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Done           int            `json:"done"`
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	LastCheckpoint string         `json:"last_checkpoint,omitempty"`
}

// TallySink keeps per-run counters in memory for the status API.
type TallySink struct {
	mu    sync.RWMutex
	runs  map[[16]byte]*RunSnapshot
	order [][16]byte
}

// NewTallySink returns an empty TallySink.
func NewTallySink() *TallySink {
	return &TallySink{runs: make(map[[16]byte]*RunSnapshot)}
}

// Consume folds the batch into the per-run counters.
func (s *TallySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		run := s.run(evt)
		if evt.Total > 0 {
			run.Total = evt.Total
		}
		if evt.Done > run.Done {
			run.Done = evt.Done
		}
		switch evt.Stage {
		case progress.StageJobDone:
			run.ByStatus[evt.Status]++
		case progress.StageCheckpoint:
			run.LastCheckpoint = evt.Note
		case progress.StageRunDone:
			ts := evt.TS
			run.FinishedAt = &ts
		}
	}
	return nil
}

func (s *TallySink) run(evt progress.Event) *RunSnapshot {
	if run, ok := s.runs[evt.RunID]; ok {
		return run
	}
	run := &RunSnapshot{
		RunID:     evt.RunUUID().String(),
		Kind:      string(evt.Kind),
		StartedAt: evt.TS,
		ByStatus:  map[string]int{},
	}
	s.runs[evt.RunID] = run
	s.order = append(s.order, evt.RunID)
	return run
}

// Snapshot returns copies of every run seen, oldest first.
func (s *TallySink) Snapshot() []RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunSnapshot, 0, len(s.order))
	for _, id := range s.order {
		run := *s.runs[id]
		run.ByStatus = maps.Clone(run.ByStatus)
		out = append(out, run)
	}
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *TallySink) Close(context.Context) error {
	return nil
}
