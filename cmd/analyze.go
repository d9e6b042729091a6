package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/primerblast-validator/internal/report"
)

type analyzeOptions struct {
	summaryOut string
	recordsOut string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [results.json]",
		Short: "Count passed and failed validations in a results file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "primer_data.json"
			if len(args) > 0 {
				path = args[0]
			}
			return runAnalyze(cmd, path, opts)
		},
	}
	cmd.Flags().StringVar(&opts.summaryOut, "summary-out", report.DefaultSummaryFile, "summary output file")
	cmd.Flags().StringVar(&opts.recordsOut, "records-out", report.DefaultRecordsFile, "record list output file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	records, err := report.ReadRecords(path)
	if err != nil {
		return err
	}
	analysis := report.Analyze(records)

	printer := report.NewPrinter(cmd.OutOrStdout(), false)
	printer.PrintAnalysis(analysis)
	if err := analysis.SaveSummary(opts.summaryOut); err != nil {
		return err
	}
	printer.Printf("\nResults saved to: %s\n", opts.summaryOut)
	if err := analysis.SaveRecords(opts.recordsOut); err != nil {
		return err
	}
	printer.Printf("All records saved to: %s\n", opts.recordsOut)
	return nil
}
