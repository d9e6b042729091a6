package submit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/primerblast-validator/internal/clock/system"
	collyfetcher "github.com/JakeFAU/primerblast-validator/internal/fetcher/colly"
	"github.com/JakeFAU/primerblast-validator/internal/input"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

var frozen = system.Fixed(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

type countingPacer struct {
	calls atomic.Int32
	err   error
}

func (p *countingPacer) Wait(ctx context.Context, _ string) error {
	p.calls.Add(1)
	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

// ncbiStub answers form posts according to the INPUT_SEQUENCE field.
type ncbiStub struct {
	mu      sync.Mutex
	headers map[string]http.Header
	forms   map[string]map[string]string
}

func newNCBIStub(t *testing.T) (*ncbiStub, *httptest.Server) {
	t.Helper()
	stub := &ncbiStub{headers: map[string]http.Header{}, forms: map[string]map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *ncbiStub) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	acc := r.PostForm.Get("INPUT_SEQUENCE")
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	s.mu.Lock()
	s.headers[acc] = r.Header.Clone()
	s.forms[acc] = form
	s.mu.Unlock()

	switch acc {
	case "META":
		fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0; URL=primertool.cgi?job_key=META123"></head></html>`)
	case "LABEL":
		fmt.Fprint(w, `<html><body><p>Job ID: LBL789</p></body></html>`)
	case "NONE":
		fmt.Fprint(w, `<html><body>Please try again later</body></html>`)
	case "ERR":
		http.Error(w, "backend down", http.StatusInternalServerError)
	default:
		fmt.Fprintf(w, `<html><form><input type="hidden" name="job_key" value="KEY_%s"></form></html>`, acc)
	}
}

func (s *ncbiStub) header(acc string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[acc]
}

func (s *ncbiStub) form(acc string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[acc]
}

func newTestSubmitter(srvURL string, pacer primerblast.Pacer) *Submitter {
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second, Name: "submit"})
	return New(Config{SubmitURL: srvURL + "/primertool.cgi", Email: "lab@example.org"}, fetcher, pacer, frozen, nil)
}

func row(id, acc string, size int) input.Row {
	left, right := 10, 120
	return input.Row{
		PrimerID:         id,
		Accession:        acc,
		LeftPrimerSeq:    "ACGTACGTACGTACGTAC",
		RightPrimerSeq:   "TTGCAATTGCAATTGCAA",
		ProductSize:      size,
		LeftPrimerStart:  &left,
		RightPrimerStart: &right,
	}
}

func TestProductSizeRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int
		want SizeRange
	}{
		{size: 0, want: SizeRange{Min: 100, Max: 200}},
		{size: 149, want: SizeRange{Min: 100, Max: 200}},
		{size: 150, want: SizeRange{Min: 150, Max: 200}},
		{size: 200, want: SizeRange{Min: 150, Max: 200}},
		{size: 201, want: SizeRange{Min: 300, Max: 500}},
		{size: 450, want: SizeRange{Min: 300, Max: 500}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.size), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProductSizeRange(tt.size))
		})
	}
}

func TestFormParams(t *testing.T) {
	t.Parallel()

	form := FormParams(row("P1", "NC_045512.2", 180), DefaultOrganism)
	assert.Equal(t, "request", form["CMD"])
	assert.Equal(t, "NC_045512.2", form["INPUT_SEQUENCE"])
	assert.Equal(t, "NC_045512.2", form["ENTREZ_QUERY"])
	assert.Equal(t, "ACGTACGTACGTACGTAC", form["PRIMER_LEFT_INPUT"])
	assert.Equal(t, "TTGCAATTGCAATTGCAA", form["PRIMER_RIGHT_INPUT"])
	assert.Equal(t, "150", form["PRIMER_PRODUCT_MIN"])
	assert.Equal(t, "200", form["PRIMER_PRODUCT_MAX"])
	assert.Equal(t, "200", form["MAX_TARGET_SIZE"])
	assert.Equal(t, "Viruses (taxid:10239)", form["ORGANISM"])
	assert.Equal(t, "nt", form["PRIMER_SPECIFICITY_DATABASE"])
	assert.Equal(t, "20", form["PRIMER_NUM_RETURN"])
}

func TestConfigHeaders(t *testing.T) {
	t.Parallel()

	h := Config{Email: "lab@example.org"}.Headers()
	assert.Equal(t, "primerblast-validator/1.0 (mailto:lab@example.org)", h.Get("User-Agent"))
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov", h.Get("Origin"))
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/tools/primer-blast/index.cgi", h.Get("Referer"))
}

func TestSubmitOutcomes(t *testing.T) {
	t.Parallel()

	stub, srv := newNCBIStub(t)
	submitURL := srv.URL + "/primertool.cgi"

	tests := []struct {
		name       string
		acc        string
		wantStatus primerblast.SubmissionStatus
		wantKey    string
		wantURL    string
		wantErr    string
	}{
		{name: "meta refresh", acc: "META", wantStatus: primerblast.SubmissionSubmitted, wantKey: "META123", wantURL: "primertool.cgi?job_key=META123"},
		{name: "hidden field", acc: "HID", wantStatus: primerblast.SubmissionSubmitted, wantKey: "KEY_HID", wantURL: submitURL + "?job_key=KEY_HID"},
		{name: "job id label", acc: "LABEL", wantStatus: primerblast.SubmissionSubmitted, wantKey: "LBL789", wantURL: submitURL + "?job_key=LBL789"},
		{name: "no key", acc: "NONE", wantStatus: primerblast.SubmissionFailedExtraction},
		{name: "server error", acc: "ERR", wantStatus: primerblast.SubmissionFailed, wantErr: "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pacer := &countingPacer{}
			job := newTestSubmitter(srv.URL, pacer).Submit(context.Background(), row("P-"+tt.acc, tt.acc, 120))

			assert.Equal(t, tt.wantStatus, job.Status)
			assert.Equal(t, "P-"+tt.acc, job.PrimerID)
			assert.Equal(t, "2024-05-01 12:00:00", job.SubmissionTime)
			assert.Equal(t, int32(1), pacer.calls.Load())
			require.NotNil(t, job.ProductSize)
			assert.Equal(t, 120, int(*job.ProductSize))
			assert.Equal(t, 10, *job.ExpectedForwardStart())
			assert.Equal(t, tt.wantKey, job.Key())
			assert.Equal(t, tt.wantURL, job.URL())
			if tt.wantErr != "" {
				assert.Contains(t, job.Error, tt.wantErr)
			} else {
				assert.Empty(t, job.Error)
			}
		})
	}

	t.Run("headers", func(t *testing.T) {
		t.Parallel()

		newTestSubmitter(srv.URL, nil).Submit(context.Background(), row("P-H", "HEADERS", 300))
		h := stub.header("HEADERS")
		require.NotNil(t, h)
		assert.Equal(t, "primerblast-validator/1.0 (mailto:lab@example.org)", h.Get("User-Agent"))
		assert.Equal(t, srv.URL, h.Get("Origin"))
		assert.Equal(t, srv.URL+"/index.cgi", h.Get("Referer"))
		form := stub.form("HEADERS")
		assert.Equal(t, "300", form["PRIMER_PRODUCT_MIN"])
		assert.Equal(t, "500", form["PRIMER_PRODUCT_MAX"])
	})
}

func TestSubmitPacerError(t *testing.T) {
	t.Parallel()

	stub, srv := newNCBIStub(t)
	pacer := &countingPacer{err: context.DeadlineExceeded}

	job := newTestSubmitter(srv.URL, pacer).Submit(context.Background(), row("P1", "PACED", 120))

	assert.Equal(t, primerblast.SubmissionFailed, job.Status)
	assert.Contains(t, job.Error, "wait for submission slot")
	assert.Nil(t, job.JobKey)
	assert.Nil(t, stub.header("PACED"))
}

func TestSubmitWithoutStartCoordinates(t *testing.T) {
	t.Parallel()

	_, srv := newNCBIStub(t)
	r := row("P1", "NOSTART", 120)
	r.LeftPrimerStart, r.RightPrimerStart = nil, nil

	job := newTestSubmitter(srv.URL, nil).Submit(context.Background(), r)

	assert.Equal(t, primerblast.SubmissionSubmitted, job.Status)
	assert.Nil(t, job.LeftPrimerStart)
	assert.Nil(t, job.RightPrimerStart)
}
