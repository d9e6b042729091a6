package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/jobfile"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
	"github.com/JakeFAU/primerblast-validator/internal/report"
	"github.com/JakeFAU/primerblast-validator/internal/validate"
)

type validateOptions struct {
	jobs       string
	output     string
	verbose    bool
	workers    int
	checkpoint int
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [start] [end]",
		Short: "Fetch Primer-BLAST results and check them against the submitted pairs",
		Long: `Loads the job list, fetches the result page of jobs [start, end) and
records a validation status for each. Results are checkpointed while the run
progresses and summarised at the end.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.jobs, "jobs", "", "job list JSON (default validate.jobs_path)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "results JSON (default validation_results_<range>.json)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "show extraction details")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent validations (default validate.workers)")
	cmd.Flags().IntVar(&opts.checkpoint, "checkpoint", 0, "save every N completed jobs (default validate.checkpoint_interval)")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *validateOptions) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg := e.cfg
	start, end, err := parseWindow(args)
	if err != nil {
		return err
	}
	if opts.jobs != "" {
		cfg.Validation.JobsPath = opts.jobs
	}
	if opts.workers > 0 {
		cfg.Validation.Workers = opts.workers
	}
	if opts.checkpoint > 0 {
		cfg.Validation.CheckpointInterval = opts.checkpoint
	}
	mode, err := validate.ParseArchiveMode(cfg.Archive.Mode)
	if err != nil {
		return err
	}

	jobs, err := jobfile.Read(cfg.Validation.JobsPath)
	if err != nil {
		return err
	}
	printer := report.NewPrinter(cmd.OutOrStdout(), opts.verbose)
	window, clamped, err := primerblast.ResolveRange(len(jobs), start, end)
	if err != nil {
		return err
	}
	if clamped {
		printer.Printf("Warning: end (%d) is beyond the job list length (%d), using %d\n", *end, len(jobs), len(jobs))
	}
	output := opts.output
	if output == "" {
		output = primerblast.ResultsFileName(start, end)
	}

	printer.Printf("Validating jobs %d to %d (%d total jobs)\n", window.Start, window.End-1, window.Len())
	printer.Printf("Using %d worker threads\n", cfg.Validation.Workers)
	printer.Printf("Checkpointing every %d completed jobs\n", cfg.Validation.CheckpointInterval)
	if opts.verbose {
		printer.Println("(Verbose mode: showing extraction details)")
	}
	printer.Rule(80)

	a, err := newApp(cmd.Context(), cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer closeApp(cmd.Context(), a, e.logger)
	a.ServeStatus(cmd.Context())

	runID, reporter, err := a.NewRun(progress.KindValidate)
	if err != nil {
		return err
	}
	logger := e.logger.With(zap.String("run_id", runID.String()))

	validator := validate.NewValidator(validate.Options{
		Fetcher:  a.ResultsFetcher(),
		Pacer:    a.Spacer(),
		Archiver: validate.NewArchiver(a.Blobs(), mode, cfg.Archive.Prefix),
		Printer:  printer,
		Logger:   logger.Named("validate"),
	})
	exports := validate.Exports{RunID: runID.String(), Store: a.Results()}
	if cfg.Storage.ExportResults {
		exports.Blobs = a.Blobs()
	}
	agg := validate.NewAggregator(validate.AggregatorConfig{
		Workers:            cfg.Validation.Workers,
		CheckpointInterval: cfg.Validation.CheckpointInterval,
		OutputPath:         output,
	}, validator, printer, reporter, exports, logger.Named("aggregate"))

	results, err := agg.Run(cmd.Context(), jobs[window.Start:window.End])
	printer.ValidationSummary(report.Summarize(results), report.RunInfo{
		Start:      window.Start,
		End:        window.End,
		Windowed:   start > 0 || end != nil,
		OutputPath: output,
	})
	return err
}
