package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/primerblast-validator/internal/filelock"
	"github.com/JakeFAU/primerblast-validator/internal/jobfile"
)

// MissingID stands in for records without a primer_id.
const MissingID = "MISSING_ID"

// Default analyze output names.
const (
	DefaultSummaryFile = "primer_validation_summary.txt"
	DefaultRecordsFile = "all_primer_records.txt"
)

// Record is the loose view of a results entry used by Analyze; fields may be
// absent or hold non-string JSON.
type Record map[string]any

// RecordStatus pairs a primer ID with its validation status.
type RecordStatus struct {
	PrimerID string
	Status   string
}

// Analysis is the pass/fail tally of a results file.
type Analysis struct {
	Passed  int
	Failed  int
	Records []RecordStatus
}

// Total counts only passed and failed records.
func (a Analysis) Total() int { return a.Passed + a.Failed }

// ReadRecords loads a results file as loose records.
func ReadRecords(path string) ([]Record, error) {
	return jobfile.ReadList[Record](path)
}

// Analyze tallies records. "fail" and "failed" both count as failed.
func Analyze(records []Record) Analysis {
	a := Analysis{Records: make([]RecordStatus, 0, len(records))}
	for _, rec := range records {
		id := field(rec, "primer_id")
		if id == "" {
			id = MissingID
		}
		status := field(rec, "validation_status")
		switch status {
		case "pass":
			a.Passed++
		case "fail", "failed":
			a.Failed++
		}
		if status == "" {
			status = UnknownStatus
		}
		a.Records = append(a.Records, RecordStatus{PrimerID: id, Status: status})
	}
	return a
}

func field(rec Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// WriteSummary renders the fixed-width summary block.
func (a Analysis) WriteSummary(w io.Writer) error {
	rule := strings.Repeat("=", 60)
	_, err := fmt.Fprintf(w,
		"%s\nPRIMER VALIDATION SUMMARY\n%s\nTotal validations:  %d\nPassed validations: %d\nFailed validations: %d\n%s\n",
		rule, rule, a.Total(), a.Passed, a.Failed, rule,
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteRecords renders one "primer_id<TAB>status" line per record.
func (a Analysis) WriteRecords(w io.Writer) error {
	for _, r := range a.Records {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", r.PrimerID, r.Status); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	}
	return nil
}

// SaveSummary writes the summary block to path.
func (a Analysis) SaveSummary(path string) error {
	var buf bytes.Buffer
	if err := a.WriteSummary(&buf); err != nil {
		return err
	}
	return filelock.AtomicWrite(path, buf.Bytes())
}

// SaveRecords writes the record list to path.
func (a Analysis) SaveRecords(path string) error {
	var buf bytes.Buffer
	if err := a.WriteRecords(&buf); err != nil {
		return err
	}
	return filelock.AtomicWrite(path, buf.Bytes())
}

// PrintAnalysis writes the summary block to the console.
func (p *Printer) PrintAnalysis(a Analysis) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = a.WriteSummary(p.out)
}
