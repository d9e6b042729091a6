package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/primerblast-validator/internal/progress"
)

// PrometheusSink exports run progress via Prometheus.
type PrometheusSink struct {
	runsStarted    *prometheus.CounterVec
	runsRunning    *prometheus.GaugeVec
	records        *prometheus.CounterVec
	recordDuration *prometheus.HistogramVec
	runProgress    *prometheus.GaugeVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "primerblast_runs_started_total",
			Help: "Total runs started, by kind.",
		}, []string{"kind"}),
		runsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "primerblast_runs_running",
			Help: "Runs currently in progress, by kind.",
		}, []string{"kind"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "primerblast_records_total",
			Help: "Records finished, by kind and resulting status.",
		}, []string{"kind", "status"}),
		recordDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "primerblast_record_duration_seconds",
			Help:    "Wall time per record, by kind.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),
		runProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "primerblast_run_progress_ratio",
			Help: "Fraction of records finished in the latest run, by kind.",
		}, []string{"kind"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsRunning,
		s.records,
		s.recordDuration,
		s.runProgress,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		kind := string(evt.Kind)
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(kind).Inc()
			if s.tracker.start(evt.RunID) {
				s.runsRunning.WithLabelValues(kind).Inc()
			}
			s.runProgress.WithLabelValues(kind).Set(0)
		case progress.StageJobDone:
			s.records.WithLabelValues(kind, evt.Status).Inc()
			if evt.Dur > 0 {
				s.recordDuration.WithLabelValues(kind).Observe(evt.Dur.Seconds())
			}
			s.observeProgress(kind, evt)
		case progress.StageCheckpoint:
			s.observeProgress(kind, evt)
		case progress.StageRunDone:
			s.observeProgress(kind, evt)
			if s.tracker.complete(evt.RunID) {
				s.runsRunning.WithLabelValues(kind).Dec()
			}
		}
	}
	return nil
}

func (s *PrometheusSink) observeProgress(kind string, evt progress.Event) {
	if evt.Total > 0 {
		s.runProgress.WithLabelValues(kind).Set(float64(evt.Done) / float64(evt.Total))
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
