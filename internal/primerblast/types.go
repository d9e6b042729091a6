// Package primerblast defines the record types and interfaces shared by the
// submitter, the validator and their supporting infrastructure.
package primerblast

import (
	"encoding/json"
	"net/http"
	"time"
)

// SubmissionStatus is the outcome of posting a job to Primer-BLAST.
type SubmissionStatus string

// Submission status values persisted in the job list.
const (
	SubmissionInit             SubmissionStatus = "init"
	SubmissionSubmitted        SubmissionStatus = "submitted"
	SubmissionFailedExtraction SubmissionStatus = "failed_extraction"
	SubmissionFailed           SubmissionStatus = "failed"
)

// ValidationStatus is the terminal state the validator assigns to a job.
type ValidationStatus string

// Validation status values. Every one of them is terminal for a single run.
const (
	StatusNoURL            ValidationStatus = "no_url"
	StatusFetchFailed      ValidationStatus = "fetch_failed"
	StatusProcessing       ValidationStatus = "processing"
	StatusNoPrimers        ValidationStatus = "no_primers"
	StatusExtractionFailed ValidationStatus = "extraction_failed"
	StatusNoPrimerData     ValidationStatus = "no_primer_data"
	StatusPass             ValidationStatus = "pass"
	StatusFail             ValidationStatus = "fail"
)

// SubmissionTimeLayout is the layout of Job.SubmissionTime.
const SubmissionTimeLayout = "2006-01-02 15:04:05"

// Job is one primer-pair submission, enriched in place by the validator.
type Job struct {
	PrimerID         string           `json:"primer_id"`
	Accession        string           `json:"accession"`
	ForwardPrimer    string           `json:"forward_primer"`
	ReversePrimer    string           `json:"reverse_primer"`
	ProductSize      *Coord           `json:"product_size"`
	LeftPrimerStart  *Coord           `json:"left_primer_start"`
	RightPrimerStart *Coord           `json:"right_primer_start"`
	JobKey           *string          `json:"job_key"`
	ResultsURL       *string          `json:"results_url"`
	SubmissionTime   string           `json:"submission_time"`
	Status           SubmissionStatus `json:"status"`
	Error            string           `json:"error,omitempty"`

	ValidationStatus         ValidationStatus `json:"validation_status,omitempty"`
	TotalPrimerPairsFound    int              `json:"total_primer_pairs_found,omitempty"`
	MatchedPairIndex         *int             `json:"matched_pair_index,omitempty"`
	UsedMatchingAlgorithm    *bool            `json:"used_matching_algorithm,omitempty"`
	ExtractedForwardSequence *string          `json:"extracted_forward_sequence,omitempty"`
	ExtractedForwardStart    *int             `json:"extracted_forward_start,omitempty"`
	ExtractedForwardEnd      *int             `json:"extracted_forward_end,omitempty"`
	ExtractedReverseSequence *string          `json:"extracted_reverse_sequence,omitempty"`
	ExtractedReverseStart    *int             `json:"extracted_reverse_start,omitempty"`
	ExtractedReverseEnd      *int             `json:"extracted_reverse_end,omitempty"`
	ExtractedProductLength   *int             `json:"extracted_product_length,omitempty"`
	SequencesMatch           *bool            `json:"sequences_match,omitempty"`
	Validation               *Validation      `json:"validation,omitempty"`
	ValidationPassed         *bool            `json:"validation_passed,omitempty"`
	HTMLArchiveURI           string           `json:"html_archive_uri,omitempty"`

	// extra holds input keys not declared above.
	extra map[string]json.RawMessage
}

// ExpectedForwardStart returns the recorded forward primer start, if any.
func (j Job) ExpectedForwardStart() *int { return j.LeftPrimerStart.Int() }

// ExpectedReverseStart returns the recorded reverse primer start, if any.
func (j Job) ExpectedReverseStart() *int { return j.RightPrimerStart.Int() }

// ExpectedProductSize returns the recorded product size, if any.
func (j Job) ExpectedProductSize() *int { return j.ProductSize.Int() }

// URL returns the results URL or "" when the job has none.
func (j Job) URL() string {
	if j.ResultsURL == nil {
		return ""
	}
	return *j.ResultsURL
}

// Key returns the job key or "" when the job has none.
func (j Job) Key() string {
	if j.JobKey == nil {
		return ""
	}
	return *j.JobKey
}

// ResetValidation clears every field the validator writes so a run starts
// from the submitted record.
func (j *Job) ResetValidation() {
	j.ValidationStatus = ""
	j.TotalPrimerPairsFound = 0
	j.MatchedPairIndex = nil
	j.UsedMatchingAlgorithm = nil
	j.ExtractedForwardSequence = nil
	j.ExtractedForwardStart = nil
	j.ExtractedForwardEnd = nil
	j.ExtractedReverseSequence = nil
	j.ExtractedReverseStart = nil
	j.ExtractedReverseEnd = nil
	j.ExtractedProductLength = nil
	j.SequencesMatch = nil
	j.Validation = nil
	j.ValidationPassed = nil
	j.HTMLArchiveURI = ""
}

// ApplyPair copies the extracted fields of p onto the job.
func (j *Job) ApplyPair(p Pair) {
	j.ExtractedForwardSequence = p.ForwardSequence
	j.ExtractedForwardStart = p.ForwardStart
	j.ExtractedForwardEnd = p.ForwardEnd
	j.ExtractedReverseSequence = p.ReverseSequence
	j.ExtractedReverseStart = p.ReverseStart
	j.ExtractedReverseEnd = p.ReverseEnd
	j.ExtractedProductLength = p.ProductLength
}

// Pair is one candidate primer pair read from a result page.
type Pair struct {
	Index           int     `json:"index"`
	ForwardSequence *string `json:"forward_sequence"`
	ForwardStart    *int    `json:"forward_start"`
	ForwardEnd      *int    `json:"forward_end"`
	ReverseSequence *string `json:"reverse_sequence"`
	ReverseStart    *int    `json:"reverse_start"`
	ReverseEnd      *int    `json:"reverse_end"`
	ProductLength   *int    `json:"product_length"`
}

// Validation holds the per-field comparison of a job against its matched pair.
type Validation struct {
	ForwardStartMatch bool `json:"forward_start_match"`
	ReverseStartMatch bool `json:"reverse_start_match"`
	ProductSizeMatch  bool `json:"product_size_match"`
	SequencesMatch    bool `json:"sequences_match"`
}

// Passed reports whether every comparison succeeded.
func (v Validation) Passed() bool {
	return v.ForwardStartMatch && v.ReverseStartMatch && v.ProductSizeMatch && v.SequencesMatch
}

// FetchRequest captures everything needed for one HTTP exchange with NCBI.
type FetchRequest struct {
	URL     string
	Method  string
	Form    map[string]string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
