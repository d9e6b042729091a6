// Package storage holds helpers shared by the result store implementations.
package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// DefaultResultsTable is used when no table name is configured.
const DefaultResultsTable = "validation_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableName returns name, or the default when empty, after checking it is a
// plain SQL identifier.
func TableName(name string) (string, error) {
	if name == "" {
		return DefaultResultsTable, nil
	}
	if !validTableName.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// ResultRow is the flattened form of one validated record.
type ResultRow struct {
	RunID            string
	PrimerID         string
	Position         int
	Status           string
	ValidationStatus string
	ValidationPassed *bool
	MatchedPairIndex *int
	ResultsURL       *string
	Record           []byte
	SavedAt          time.Time
}

// Rows flattens jobs into rows keyed by their position in the slice.
func Rows(runID string, jobs []primerblast.Job, savedAt time.Time) ([]ResultRow, error) {
	rows := make([]ResultRow, 0, len(jobs))
	for i, job := range jobs {
		record, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", job.PrimerID, err)
		}
		rows = append(rows, ResultRow{
			RunID:            runID,
			PrimerID:         job.PrimerID,
			Position:         i,
			Status:           string(job.Status),
			ValidationStatus: string(job.ValidationStatus),
			ValidationPassed: job.ValidationPassed,
			MatchedPairIndex: job.MatchedPairIndex,
			ResultsURL:       job.ResultsURL,
			Record:           record,
			SavedAt:          savedAt.UTC(),
		})
	}
	return rows, nil
}
