package validate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

type pagePair struct {
	fwdSeq, revSeq     string
	fwdStart, revStart int
	product            int
}

func resultPage(pairs ...pagePair) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="userGuidedResults"><p>Primer pair specificity</p>`)
	for i, p := range pairs {
		fmt.Fprintf(&b, `<h3 class="pairHead">Primer pair %d</h3><table>`, i+1)
		fmt.Fprintf(&b, `<tr><th>Forward primer</th><td>%s</td><td>Plus</td><td>%d</td><td>%d</td><td>%d</td></tr>`,
			p.fwdSeq, len(p.fwdSeq), p.fwdStart, p.fwdStart+len(p.fwdSeq)-1)
		fmt.Fprintf(&b, `<tr><th>Reverse primer</th><td>%s</td><td>Minus</td><td>%d</td><td>%d</td><td>%d</td></tr>`,
			p.revSeq, len(p.revSeq), p.revStart, p.revStart-len(p.revSeq)+1)
		fmt.Fprintf(&b, `<tr><th>Product length</th><td>%d</td></tr></table>`, p.product)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

const (
	fwd = "ACGTACGTACGTACGTACGT"
	rev = "TTGCATGCATGCATGCAAGG"
)

var goodPair = pagePair{fwdSeq: fwd, revSeq: rev, fwdStart: 78, revStart: 227, product: 150}

func strp(s string) *string { return &s }

func newJob(id, url string) primerblast.Job {
	j := primerblast.Job{
		PrimerID:         id,
		ForwardPrimer:    fwd,
		ReversePrimer:    rev,
		ProductSize:      primerblast.NewCoord(150),
		LeftPrimerStart:  primerblast.NewCoord(78),
		RightPrimerStart: primerblast.NewCoord(227),
		Status:           primerblast.SubmissionSubmitted,
	}
	if url != "" {
		j.ResultsURL = strp(url)
		j.JobKey = strp("KEY-" + id)
	}
	return j
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string]fakeResponse{}}
}

func (f *fakeFetcher) set(url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = fakeResponse{status: status, body: body}
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = fakeResponse{err: err}
}

func (f *fakeFetcher) Fetch(_ context.Context, req primerblast.FetchRequest) (primerblast.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	resp, ok := f.responses[req.URL]
	if !ok {
		return primerblast.FetchResponse{}, errors.New("no route")
	}
	if resp.err != nil {
		return primerblast.FetchResponse{}, resp.err
	}
	return primerblast.FetchResponse{URL: req.URL, StatusCode: resp.status, Body: []byte(resp.body), Headers: http.Header{}}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return p.err
}
