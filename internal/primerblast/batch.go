package primerblast

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a requested row range cannot be served.
var ErrInvalidRange = errors.New("invalid row range")

// Range is a half-open [Start, End) window over a record list.
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the window.
func (r Range) Len() int { return r.End - r.Start }

// ResolveRange checks a requested window against a list of total records.
// A nil end means "to the end of the list". An end past the list is clamped
// and reported through clamped.
func ResolveRange(total, start int, end *int) (r Range, clamped bool, err error) {
	actualEnd := total
	if end != nil {
		actualEnd = *end
	}
	if start < 0 {
		return Range{}, false, fmt.Errorf("%w: start %d cannot be negative", ErrInvalidRange, start)
	}
	if start >= total {
		return Range{}, false, fmt.Errorf("%w: start %d is beyond the list length (%d records)", ErrInvalidRange, start, total)
	}
	if actualEnd > total {
		actualEnd = total
		clamped = true
	}
	if start >= actualEnd {
		return Range{}, false, fmt.Errorf("%w: start %d must be less than end %d", ErrInvalidRange, start, actualEnd)
	}
	return Range{Start: start, End: actualEnd}, clamped, nil
}

// ClampRange behaves like slicing: bounds are clamped to the list and an
// inverted window is empty. Only a negative start is rejected.
func ClampRange(total, start int, end *int) (Range, error) {
	if start < 0 {
		return Range{}, fmt.Errorf("%w: start %d cannot be negative", ErrInvalidRange, start)
	}
	actualEnd := total
	if end != nil && *end < total {
		actualEnd = *end
	}
	start = min(start, total)
	actualEnd = max(actualEnd, start)
	return Range{Start: start, End: actualEnd}, nil
}

// JobsFileName is the default submitter output name for a row window.
func JobsFileName(start int, end *int) string {
	if end == nil {
		return "primer_jobs_all.json"
	}
	return fmt.Sprintf("primer_jobs_%d_to_%d.json", start, *end)
}

// ResultsFileName is the default validator output name for a row window.
func ResultsFileName(start int, end *int) string {
	if end == nil {
		return fmt.Sprintf("validation_results_%d_to_end.json", start)
	}
	return fmt.Sprintf("validation_results_%d_to_%d.json", start, *end)
}
