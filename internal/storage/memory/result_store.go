package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// ResultStore keeps validated records per run in memory.
type ResultStore struct {
	mu     sync.RWMutex
	runs   map[string][]primerblast.Job
	closed bool
}

// NewResultStore constructs a ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{runs: make(map[string][]primerblast.Job)}
}

// SaveResults replaces the stored records for runID.
func (s *ResultStore) SaveResults(_ context.Context, runID string, jobs []primerblast.Job) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("result store is closed")
	}
	s.runs[runID] = append([]primerblast.Job(nil), jobs...)
	return nil
}

// Results returns a copy of the records saved for runID.
func (s *ResultStore) Results(runID string) ([]primerblast.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return append([]primerblast.Job(nil), jobs...), true
}

// Close marks the store closed; later saves fail.
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
