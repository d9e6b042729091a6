package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/primerblast-validator/internal/metrics"
)

// DefaultSpacing keeps result polling at roughly three requests per second.
const DefaultSpacing = 340 * time.Millisecond

// Sleeper pauses for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Spacer enforces a minimum interval between consecutive requests. The lock
// is held across compare, sleep and stamp so concurrent callers are strictly
// serialized.
type Spacer struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
	now      func() time.Time
	sleep    Sleeper
}

// SpacerOption customizes a Spacer.
type SpacerOption func(*Spacer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SpacerOption {
	return func(s *Spacer) { s.now = now }
}

// WithSleeper overrides how the Spacer waits.
func WithSleeper(sleep Sleeper) SpacerOption {
	return func(s *Spacer) { s.sleep = sleep }
}

// NewSpacer builds a Spacer. A non-positive interval uses DefaultSpacing.
func NewSpacer(interval time.Duration, opts ...SpacerOption) *Spacer {
	if interval <= 0 {
		interval = DefaultSpacing
	}
	s := &Spacer{interval: interval, now: time.Now, sleep: sleepContext}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the configured minimum spacing.
func (s *Spacer) Interval() time.Duration { return s.interval }

// Wait blocks until at least Interval has passed since the previous call
// returned. The URL is ignored: the spacing is process-wide.
func (s *Spacer) Wait(ctx context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() {
		if remaining := s.interval - s.now().Sub(s.last); remaining > 0 {
			if err := s.sleep(ctx, remaining); err != nil {
				return fmt.Errorf("request spacing: %w", err)
			}
			metrics.ObserveRateLimitDelay("results", remaining)
		}
	}
	s.last = s.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
