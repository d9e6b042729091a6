package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/input"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
	"github.com/JakeFAU/primerblast-validator/internal/report"
	"github.com/JakeFAU/primerblast-validator/internal/submit"
)

type submitOptions struct {
	input      string
	email      string
	output     string
	workers    int
	checkpoint int
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit [start] [end]",
		Short: "Submit primer pairs from a CSV table to Primer-BLAST",
		Long: `Reads the primer table, submits rows [start, end) to Primer-BLAST and
writes one job record per row, including the job key and results URL, to the
output JSON file.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "primer table CSV (default submit.input)")
	cmd.Flags().StringVar(&opts.email, "email", "", "contact email sent to NCBI (default ncbi.email)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "job list JSON (default primer_jobs_<range>.json)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent submissions (default submit.workers)")
	cmd.Flags().IntVar(&opts.checkpoint, "checkpoint", 0, "save every N completed jobs (default submit.checkpoint_interval)")
	return cmd
}

func runSubmit(cmd *cobra.Command, args []string, opts *submitOptions) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg := e.cfg
	start, end, err := parseWindow(args)
	if err != nil {
		return err
	}
	if opts.input != "" {
		cfg.Submit.Input = opts.input
	}
	if opts.email != "" {
		cfg.NCBI.Email = opts.email
	}
	if opts.workers > 0 {
		cfg.Submit.Workers = opts.workers
	}
	if opts.checkpoint > 0 {
		cfg.Submit.CheckpointInterval = opts.checkpoint
	}
	if cfg.NCBI.Email == "" {
		return errors.New("a contact email is required (--email or ncbi.email)")
	}

	rows, err := input.Load(cfg.Submit.Input)
	if err != nil {
		return err
	}
	window, err := primerblast.ClampRange(len(rows), start, end)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = primerblast.JobsFileName(start, end)
	}

	printer := report.NewPrinter(cmd.OutOrStdout(), false)
	printer.Printf("Processing rows %d to %d (%d jobs)\n", window.Start, window.End-1, window.Len())
	printer.Printf("Using %d workers\n", cfg.Submit.Workers)

	a, err := newApp(cmd.Context(), cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer closeApp(cmd.Context(), a, e.logger)
	a.ServeStatus(cmd.Context())

	runID, reporter, err := a.NewRun(progress.KindSubmit)
	if err != nil {
		return err
	}
	logger := e.logger.With(zap.String("run_id", runID.String()))

	submitter := submit.New(submit.Config{
		SubmitURL: cfg.NCBI.SubmitURL,
		Email:     cfg.NCBI.Email,
		Organism:  cfg.NCBI.Organism,
		UserAgent: cfg.NCBI.UserAgent,
	}, a.SubmitFetcher(), a.Limiter(), a.Clock(), logger.Named("submit"))
	batch := submit.NewBatch(submit.BatchConfig{
		Workers:            cfg.Submit.Workers,
		CheckpointInterval: cfg.Submit.CheckpointInterval,
		OutputPath:         output,
	}, submitter, printer, reporter, logger.Named("batch"))

	if _, err := batch.Run(cmd.Context(), rows[window.Start:window.End]); err != nil {
		return err
	}
	printer.Printf("\nAll jobs processed. Results saved to: %s\n", output)
	return nil
}
