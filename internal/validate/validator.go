// Package validate fetches Primer-BLAST result pages, picks the pair that
// matches each submitted job and records whether its coordinates agree.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/extract"
	"github.com/JakeFAU/primerblast-validator/internal/match"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/report"
)

const noPrimersMarker = "No primer pairs found"

// Options wires a Validator.
type Options struct {
	Fetcher   primerblast.Fetcher
	Pacer     primerblast.Pacer
	Extractor *extract.Extractor
	// Archiver may be nil.
	Archiver *Archiver
	Printer  *report.Printer
	Logger   *zap.Logger
}

// Validator runs the per-job state machine.
type Validator struct {
	fetcher   primerblast.Fetcher
	pacer     primerblast.Pacer
	extractor *extract.Extractor
	archiver  *Archiver
	printer   *report.Printer
	logger    *zap.Logger
}

// NewValidator builds a Validator. Fetcher is required; the rest default to
// no-ops.
func NewValidator(opts Options) *Validator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Printer == nil {
		opts.Printer = report.NewPrinter(nil, false)
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.New(opts.Logger)
	}
	return &Validator{
		fetcher:   opts.Fetcher,
		pacer:     opts.Pacer,
		extractor: opts.Extractor,
		archiver:  opts.Archiver,
		printer:   opts.Printer,
		logger:    opts.Logger,
	}
}

// Validate fetches the job's result page and returns the job with its
// validation fields rewritten. index and total are only used for progress
// lines. Validate never fails; problems become statuses.
func (v *Validator) Validate(ctx context.Context, job primerblast.Job, index, total int) primerblast.Job {
	job.ResetValidation()
	logger := v.logger.With(zap.String("primer_id", job.PrimerID))

	rawURL := job.URL()
	if rawURL == "" {
		job.ValidationStatus = primerblast.StatusNoURL
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkFail, "No URL")
		return job
	}

	v.printer.Progress(index, total, job.PrimerID, "Fetching...")
	body, err := v.fetch(ctx, rawURL)
	if err != nil {
		logger.Warn("fetch results failed", zap.String("url", rawURL), zap.Error(err))
		job.ValidationStatus = primerblast.StatusFetchFailed
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkFail, "Fetch failed")
		return job
	}

	job = v.classify(job, string(body), index, total, logger)
	v.archive(ctx, &job, body, logger)
	v.printDetails(job)
	return job
}

func (v *Validator) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if v.pacer != nil {
		if err := v.pacer.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("wait for request slot: %w", err)
		}
	}
	resp, err := v.fetcher.Fetch(ctx, primerblast.FetchRequest{URL: rawURL, Method: http.MethodGet})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", rawURL)
	}
	return resp.Body, nil
}

func (v *Validator) classify(job primerblast.Job, html string, index, total int, logger *zap.Logger) primerblast.Job {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "processing") || strings.Contains(lower, "queued") {
		job.ValidationStatus = primerblast.StatusProcessing
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkWait, "Still processing")
		return job
	}
	if strings.Contains(html, noPrimersMarker) {
		job.ValidationStatus = primerblast.StatusNoPrimers
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkFail, "No primers found")
		return job
	}

	pairs := v.extractor.Extract(html)
	if len(pairs) == 0 {
		job.ValidationStatus = primerblast.StatusExtractionFailed
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkFail, "Could not extract primers")
		return job
	}
	job.TotalPrimerPairsFound = len(pairs)

	chosen, ok := match.Find(pairs, match.ExpectedFor(job))
	if !ok {
		job.ValidationStatus = primerblast.StatusNoPrimerData
		v.printer.Outcome(index, total, job.PrimerID, "", report.MarkFail, "No valid primer data")
		return job
	}
	pairIndex := chosen.Pair.Index
	confirmed := chosen.Confirmed
	job.MatchedPairIndex = &pairIndex
	job.UsedMatchingAlgorithm = &confirmed
	job.ApplyPair(chosen.Pair)

	eval := Evaluate(job, chosen.Pair)
	validation := eval.Validation
	passed := validation.Passed()
	seqMatch := validation.SequencesMatch
	job.SequencesMatch = &seqMatch
	job.Validation = &validation
	job.ValidationPassed = &passed
	if !seqMatch {
		logger.Warn("primer sequence mismatch",
			zap.String("expected_forward", job.ForwardPrimer),
			zap.Stringp("got_forward", chosen.Pair.ForwardSequence),
			zap.String("expected_reverse", job.ReversePrimer),
			zap.Stringp("got_reverse", chosen.Pair.ReverseSequence),
		)
	}

	note := ""
	if len(pairs) > 1 {
		note = fmt.Sprintf(" (%d pairs, using #%d)", len(pairs), pairIndex)
	}
	if passed {
		job.ValidationStatus = primerblast.StatusPass
		v.printer.Outcome(index, total, job.PrimerID, note, report.MarkPass, "PASS")
		return job
	}
	job.ValidationStatus = primerblast.StatusFail
	v.printer.Outcome(index, total, job.PrimerID, note, report.MarkFail,
		fmt.Sprintf("FAIL (%s)", strings.Join(eval.Reasons(), ", ")))
	return job
}

func (v *Validator) archive(ctx context.Context, job *primerblast.Job, body []byte, logger *zap.Logger) {
	if !v.archiver.Wants(job.ValidationStatus) {
		return
	}
	uri, err := v.archiver.Archive(ctx, job.PrimerID, body)
	if err != nil {
		logger.Warn("archive result page failed", zap.Error(err))
		return
	}
	job.HTMLArchiveURI = uri
}

func (v *Validator) printDetails(job primerblast.Job) {
	if job.ExtractedForwardStart == nil {
		return
	}
	lines := []string{
		fmt.Sprintf("Expected: F=%s, R=%s, Size=%s",
			formatInt(job.ExpectedForwardStart()), formatInt(job.ExpectedReverseStart()), formatInt(job.ExpectedProductSize())),
		fmt.Sprintf("Extracted: F=%s, R=%s, Size=%s",
			formatInt(job.ExtractedForwardStart), formatInt(job.ExtractedReverseStart), formatInt(job.ExtractedProductLength)),
	}
	if job.ExtractedForwardSequence != nil && *job.ExtractedForwardSequence != "" {
		lines = append(lines, "Forward seq: "+*job.ExtractedForwardSequence)
	}
	if job.ExtractedReverseSequence != nil && *job.ExtractedReverseSequence != "" {
		lines = append(lines, "Reverse seq: "+*job.ExtractedReverseSequence)
	}
	v.printer.Detail(lines...)
}
