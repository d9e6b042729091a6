// Package jobkey recovers the Primer-BLAST job key from the page returned by a
// submission.
package jobkey

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is what a strategy found. Either field may be empty.
type Result struct {
	JobKey     string
	ResultsURL string
}

// Strategy inspects a submission response body.
type Strategy interface {
	Name() string
	Find(body string) Result
}

var (
	metaRefreshPattern = regexp.MustCompile(`(?i)content=["'][^"']*URL=([^"']+)["']`)
	jobKeyParamPattern = regexp.MustCompile(`job_key=([A-Za-z0-9_-]+)`)
	jobIDLabelPattern  = regexp.MustCompile(`(?i)JOB\s+ID\s*:\s*([A-Za-z0-9_-]+)`)
)

// MetaRefresh reads the redirect target of a <meta http-equiv="refresh">
// element and the job_key parameter inside it.
type MetaRefresh struct{}

// Name implements Strategy.
func (MetaRefresh) Name() string { return "meta_refresh" }

// Find implements Strategy.
func (MetaRefresh) Find(body string) Result {
	m := metaRefreshPattern.FindStringSubmatch(body)
	if m == nil {
		return Result{}
	}
	target := strings.ReplaceAll(m[1], "&amp;", "&")
	res := Result{ResultsURL: target}
	if k := jobKeyParamPattern.FindStringSubmatch(target); k != nil {
		res.JobKey = k[1]
	}
	return res
}

// HiddenField reads <input name="job_key" value="..."> in either attribute
// order.
type HiddenField struct{}

// Name implements Strategy.
func (HiddenField) Name() string { return "hidden_field" }

// Find implements Strategy.
func (HiddenField) Find(body string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Result{}
	}
	var res Result
	doc.Find(`input[name="job_key"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value := strings.TrimSpace(s.AttrOr("value", ""))
		if value == "" {
			return true
		}
		res.JobKey = value
		return false
	})
	return res
}

// JobIDLabel reads a visible "Job ID: xxx" label.
type JobIDLabel struct{}

// Name implements Strategy.
func (JobIDLabel) Name() string { return "job_id_label" }

// Find implements Strategy.
func (JobIDLabel) Find(body string) Result {
	m := jobIDLabelPattern.FindStringSubmatch(body)
	if m == nil {
		return Result{}
	}
	return Result{JobKey: m[1]}
}

// Chain tries strategies in order.
type Chain []Strategy

// DefaultChain is the strategy order used for live submissions.
func DefaultChain() Chain {
	return Chain{MetaRefresh{}, HiddenField{}, JobIDLabel{}}
}

// Outcome is the resolved key and results URL of a submission.
type Outcome struct {
	JobKey     string
	ResultsURL string
	// Strategy names the strategy that produced JobKey.
	Strategy string
}

// Found reports whether a job key was recovered.
func (o Outcome) Found() bool { return o.JobKey != "" }

// Resolve runs the chain over body. The first strategy that yields a key wins;
// the first URL seen is kept. A key without a URL is turned into
// submitURL?job_key=KEY.
func (c Chain) Resolve(body, submitURL string) Outcome {
	var out Outcome
	for _, s := range c {
		res := s.Find(body)
		if out.ResultsURL == "" && res.ResultsURL != "" {
			out.ResultsURL = res.ResultsURL
		}
		if res.JobKey != "" {
			out.JobKey = res.JobKey
			out.Strategy = s.Name()
			break
		}
	}
	if out.JobKey != "" && out.ResultsURL == "" {
		out.ResultsURL = ResultsURL(submitURL, out.JobKey)
	}
	return out
}

// ResultsURL builds the polling URL for a job key.
func ResultsURL(submitURL, key string) string {
	return submitURL + "?job_key=" + url.QueryEscape(key)
}
