package validate

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/dispatcher"
	"github.com/JakeFAU/primerblast-validator/internal/jobfile"
	"github.com/JakeFAU/primerblast-validator/internal/metrics"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
	"github.com/JakeFAU/primerblast-validator/internal/report"
	"github.com/JakeFAU/primerblast-validator/internal/worker"
)

// DefaultCheckpointInterval is used when AggregatorConfig.CheckpointInterval
// is not positive.
const DefaultCheckpointInterval = 1000

// AggregatorConfig controls a validation run.
type AggregatorConfig struct {
	Workers            int
	CheckpointInterval int
	// OutputPath receives checkpoints and the final list.
	OutputPath string
}

// Exports are optional destinations for the final records.
type Exports struct {
	RunID string
	// Store receives one row per record.
	Store primerblast.ResultStore
	// Blobs receives the final JSON under results/<run_id>.json.
	Blobs primerblast.BlobStore
}

// Aggregator validates a job list with a bounded worker pool, checkpointing
// the completed subset as it goes.
type Aggregator struct {
	cfg       AggregatorConfig
	validator *Validator
	printer   *report.Printer
	reporter  *progress.Reporter
	exports   Exports
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator builds an Aggregator. reporter may be nil.
func NewAggregator(
	cfg AggregatorConfig,
	validator *Validator,
	printer *report.Printer,
	reporter *progress.Reporter,
	exports Exports,
	logger *zap.Logger,
) *Aggregator {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = dispatcher.DefaultWorkers
	}
	if printer == nil {
		printer = report.NewPrinter(nil, false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:       cfg,
		validator: validator,
		printer:   printer,
		reporter:  reporter,
		exports:   exports,
		logger:    logger,
		now:       time.Now,
	}
}

type timedJob struct {
	job primerblast.Job
	dur time.Duration
}

// Run validates jobs and returns them in input order. The returned slice is
// shorter than jobs only when ctx ended early. The error reports a failed
// final write or export; checkpoint failures are logged and counted only.
func (a *Aggregator) Run(ctx context.Context, jobs []primerblast.Job) ([]primerblast.Job, error) {
	total := len(jobs)
	started := a.now()
	a.reporter.RunStart(total, a.cfg.OutputPath)

	handle := func(ctx context.Context, item worker.Item[timedJob]) timedJob {
		begin := a.now()
		job := a.validator.Validate(ctx, item.Value.job, item.Position+1, total)
		return timedJob{job: job, dur: a.now().Sub(begin)}
	}
	observe := func(c dispatcher.Completion[timedJob]) {
		a.reporter.JobDone(c.Position, c.Value.job.PrimerID, string(c.Value.job.ValidationStatus), c.Done, c.Total, c.Value.dur)
		if c.Done%a.cfg.CheckpointInterval != 0 {
			return
		}
		// The slot lock is held here, so checkpoints never interleave.
		err := a.write(ctx, unwrap(c.Completed()))
		metrics.ObserveCheckpoint("validate", err)
		if err != nil {
			a.logger.Error("checkpoint failed", zap.String("path", a.cfg.OutputPath), zap.Error(err))
			return
		}
		a.printer.Checkpoint(c.Done, c.Total, a.cfg.OutputPath)
		a.reporter.Checkpoint(c.Done, c.Total, a.cfg.OutputPath)
	}

	items := make([]timedJob, len(jobs))
	for i, job := range jobs {
		items[i] = timedJob{job: job}
	}
	d := dispatcher.New[timedJob](dispatcher.Config{Workers: a.cfg.Workers}, handle, observe, a.logger.Named("dispatch"))
	results := unwrap(d.Run(ctx, items))

	if err := a.write(ctx, results); err != nil {
		metrics.ObserveCheckpoint("validate_final", err)
		return results, fmt.Errorf("write results: %w", err)
	}
	metrics.ObserveCheckpoint("validate_final", nil)
	a.reporter.RunDone(len(results), total, a.now().Sub(started), a.cfg.OutputPath)

	if err := a.export(ctx, results); err != nil {
		return results, err
	}
	return results, nil
}

func (a *Aggregator) write(ctx context.Context, jobs []primerblast.Job) error {
	if a.cfg.OutputPath == "" {
		return nil
	}
	// Checkpoints must land even while the run is being canceled.
	return jobfile.Write(context.WithoutCancel(ctx), a.cfg.OutputPath, jobs)
}

func (a *Aggregator) export(ctx context.Context, jobs []primerblast.Job) error {
	ctx = context.WithoutCancel(ctx)
	if a.exports.Store != nil {
		if err := a.exports.Store.SaveResults(ctx, a.exports.RunID, jobs); err != nil {
			return fmt.Errorf("save results to store: %w", err)
		}
		a.logger.Info("results saved to store", zap.String("run_id", a.exports.RunID), zap.Int("records", len(jobs)))
	}
	if a.exports.Blobs != nil {
		data, err := jobfile.Encode(jobs)
		if err != nil {
			return err
		}
		uri, err := a.exports.Blobs.PutObject(ctx, "results/"+a.exports.RunID+".json", "application/json", bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		a.logger.Info("results exported", zap.String("uri", uri))
	}
	return nil
}

func unwrap(items []timedJob) []primerblast.Job {
	out := make([]primerblast.Job, len(items))
	for i, it := range items {
		out[i] = it.job
	}
	return out
}
