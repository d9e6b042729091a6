package dispatcher

import "sync"

// Completion describes one finished item. It is only valid inside the
// Observer call that receives it.
type Completion[T any] struct {
	Position int
	Value    T
	Done     int
	Total    int

	slots *Slots[T]
}

// Completed returns every finished result in input order. It must only be
// called from within the Observer, which already holds the slot lock.
func (c Completion[T]) Completed() []T {
	return c.slots.completedLocked()
}

// Observer is invoked after each result is stored, while the slot lock is
// held, so checkpoint writes see a consistent view and never interleave.
type Observer[T any] func(Completion[T])

// Slots is a fixed-size, position-indexed result container.
type Slots[T any] struct {
	mu     sync.Mutex
	values []T
	filled []bool
	done   int
}

// NewSlots allocates n empty slots.
func NewSlots[T any](n int) *Slots[T] {
	return &Slots[T]{
		values: make([]T, n),
		filled: make([]bool, n),
	}
}

// Put stores v at position and then calls observe, if any, under the lock.
func (s *Slots[T]) Put(position int, v T, observe Observer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filled[position] {
		s.filled[position] = true
		s.done++
	}
	s.values[position] = v
	if observe != nil {
		observe(Completion[T]{
			Position: position,
			Value:    v,
			Done:     s.done,
			Total:    len(s.values),
			slots:    s,
		})
	}
}

// Done returns how many slots are filled.
func (s *Slots[T]) Done() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Completed returns the filled slots in position order.
func (s *Slots[T]) Completed() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedLocked()
}

func (s *Slots[T]) completedLocked() []T {
	out := make([]T, 0, s.done)
	for i, ok := range s.filled {
		if ok {
			out = append(out, s.values[i])
		}
	}
	return out
}
