// Package submit posts primer pairs to Primer-BLAST and records the job key
// each submission is assigned.
package submit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/input"
	"github.com/JakeFAU/primerblast-validator/internal/jobkey"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// Defaults for the live NCBI service.
const (
	DefaultSubmitURL = "https://www.ncbi.nlm.nih.gov/tools/primer-blast/primertool.cgi"
	DefaultOrganism  = "Viruses (taxid:10239)"
	DefaultUserAgent = "primerblast-validator/1.0"
)

// Config identifies the endpoint and the caller.
type Config struct {
	SubmitURL string
	Email     string
	Organism  string
	// UserAgent is the product token; the contact email is appended.
	UserAgent string
}

func (c Config) withDefaults() Config {
	if c.SubmitURL == "" {
		c.SubmitURL = DefaultSubmitURL
	}
	if c.Organism == "" {
		c.Organism = DefaultOrganism
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Headers returns the request headers NCBI expects from a form submission:
// a User-Agent carrying a contact address, plus Origin and Referer pointing
// at the Primer-BLAST form page.
func (c Config) Headers() http.Header {
	c = c.withDefaults()
	h := http.Header{}
	h.Set("User-Agent", fmt.Sprintf("%s (mailto:%s)", c.UserAgent, c.Email))
	if u, err := url.Parse(c.SubmitURL); err == nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		h.Set("Origin", origin)
		h.Set("Referer", origin+path.Join(path.Dir(u.Path), "index.cgi"))
	}
	return h
}

// Submitter performs one submission per row.
type Submitter struct {
	cfg     Config
	fetcher primerblast.Fetcher
	pacer   primerblast.Pacer
	chain   jobkey.Chain
	clock   primerblast.Clock
	logger  *zap.Logger
}

// New builds a Submitter. fetcher must not follow redirects; pacer may be nil.
func New(cfg Config, fetcher primerblast.Fetcher, pacer primerblast.Pacer, clock primerblast.Clock, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		pacer:   pacer,
		chain:   jobkey.DefaultChain(),
		clock:   clock,
		logger:  logger,
	}
}

// Submit posts row and returns the resulting job record. Transport and HTTP
// errors yield status "failed" with the error text; a page without a job key
// yields "failed_extraction".
func (s *Submitter) Submit(ctx context.Context, row input.Row) primerblast.Job {
	job := primerblast.Job{
		PrimerID:         row.PrimerID,
		Accession:        row.Accession,
		ForwardPrimer:    row.LeftPrimerSeq,
		ReversePrimer:    row.RightPrimerSeq,
		ProductSize:      primerblast.NewCoord(row.ProductSize),
		LeftPrimerStart:  coord(row.LeftPrimerStart),
		RightPrimerStart: coord(row.RightPrimerStart),
		SubmissionTime:   s.clock.Now().Format(primerblast.SubmissionTimeLayout),
		Status:           primerblast.SubmissionInit,
	}
	logger := s.logger.With(zap.String("primer_id", row.PrimerID))

	body, err := s.post(ctx, row)
	if err != nil {
		logger.Error("submission failed", zap.Error(err))
		job.Status = primerblast.SubmissionFailed
		job.Error = err.Error()
		return job
	}

	outcome := s.chain.Resolve(string(body), s.cfg.SubmitURL)
	if !outcome.Found() {
		logger.Warn("no job key in submission response", zap.Int("bytes", len(body)))
		job.Status = primerblast.SubmissionFailedExtraction
		return job
	}
	key, resultsURL := outcome.JobKey, outcome.ResultsURL
	job.JobKey = &key
	job.ResultsURL = &resultsURL
	job.Status = primerblast.SubmissionSubmitted
	logger.Debug("job submitted", zap.String("job_key", key), zap.String("strategy", outcome.Strategy))
	return job
}

func (s *Submitter) post(ctx context.Context, row input.Row) ([]byte, error) {
	if s.pacer != nil {
		if err := s.pacer.Wait(ctx, s.cfg.SubmitURL); err != nil {
			return nil, fmt.Errorf("wait for submission slot: %w", err)
		}
	}
	resp, err := s.fetcher.Fetch(ctx, primerblast.FetchRequest{
		URL:     s.cfg.SubmitURL,
		Method:  http.MethodPost,
		Form:    FormParams(row, s.cfg.Organism),
		Headers: s.cfg.Headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", row.PrimerID, err)
	}
	return resp.Body, nil
}

func coord(v *int) *primerblast.Coord {
	if v == nil {
		return nil
	}
	return primerblast.NewCoord(*v)
}
