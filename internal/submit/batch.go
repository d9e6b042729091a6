package submit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/dispatcher"
	"github.com/JakeFAU/primerblast-validator/internal/input"
	"github.com/JakeFAU/primerblast-validator/internal/jobfile"
	"github.com/JakeFAU/primerblast-validator/internal/metrics"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
	"github.com/JakeFAU/primerblast-validator/internal/report"
	"github.com/JakeFAU/primerblast-validator/internal/worker"
)

// DefaultCheckpointInterval is how many completions pass between writes.
const DefaultCheckpointInterval = 10

// BatchConfig controls a submission run.
type BatchConfig struct {
	Workers            int
	CheckpointInterval int
	OutputPath         string
}

// Batch submits a list of rows with a bounded worker pool.
type Batch struct {
	cfg       BatchConfig
	submitter *Submitter
	printer   *report.Printer
	reporter  *progress.Reporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatch builds a Batch. printer and reporter may be nil.
func NewBatch(cfg BatchConfig, submitter *Submitter, printer *report.Printer, reporter *progress.Reporter, logger *zap.Logger) *Batch {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	if printer == nil {
		printer = report.NewPrinter(nil, false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{
		cfg:       cfg,
		submitter: submitter,
		printer:   printer,
		reporter:  reporter,
		logger:    logger,
		now:       time.Now,
	}
}

type submission struct {
	row input.Row
	job primerblast.Job
	dur time.Duration
}

// Run submits rows. The output file is reset to an empty list first, then
// rewritten with the completed subset every CheckpointInterval completions
// and once all rows are done.
func (b *Batch) Run(ctx context.Context, rows []input.Row) ([]primerblast.Job, error) {
	if err := b.write(ctx, nil); err != nil {
		return nil, fmt.Errorf("initialise output: %w", err)
	}
	total := len(rows)
	started := b.now()
	b.reporter.RunStart(total, b.cfg.OutputPath)

	handle := func(ctx context.Context, item worker.Item[submission]) submission {
		begin := b.now()
		job := b.submitter.Submit(ctx, item.Value.row)
		return submission{row: item.Value.row, job: job, dur: b.now().Sub(begin)}
	}
	observe := func(c dispatcher.Completion[submission]) {
		job := c.Value.job
		b.printer.Submitted(c.Done, c.Total, job.PrimerID, job.Key())
		b.reporter.JobDone(c.Position, job.PrimerID, string(job.Status), c.Done, c.Total, c.Value.dur)
		if c.Done%b.cfg.CheckpointInterval != 0 && c.Done != c.Total {
			return
		}
		err := b.write(ctx, jobsOf(c.Completed()))
		metrics.ObserveCheckpoint("submit", err)
		if err != nil {
			b.logger.Error("checkpoint failed", zap.String("path", b.cfg.OutputPath), zap.Error(err))
			return
		}
		b.reporter.Checkpoint(c.Done, c.Total, b.cfg.OutputPath)
	}

	items := make([]submission, len(rows))
	for i, row := range rows {
		items[i] = submission{row: row}
	}
	d := dispatcher.New[submission](dispatcher.Config{Workers: b.cfg.Workers}, handle, observe, b.logger.Named("dispatch"))
	jobs := jobsOf(d.Run(ctx, items))

	if len(jobs) < total {
		if err := b.write(ctx, jobs); err != nil {
			return jobs, fmt.Errorf("write partial results: %w", err)
		}
	}
	b.reporter.RunDone(len(jobs), total, b.now().Sub(started), b.cfg.OutputPath)
	return jobs, nil
}

func (b *Batch) write(ctx context.Context, jobs []primerblast.Job) error {
	if b.cfg.OutputPath == "" {
		return nil
	}
	return jobfile.Write(context.WithoutCancel(ctx), b.cfg.OutputPath, jobs)
}

func jobsOf(items []submission) []primerblast.Job {
	out := make([]primerblast.Job, len(items))
	for i, it := range items {
		out[i] = it.job
	}
	return out
}
