package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// Mismatch describes one failed comparison, rendered like "F_start:78≠80".
type Mismatch struct {
	Field    string
	Expected *int
	Got      *int
}

func (m Mismatch) String() string {
	if m.Field == SequenceMismatch {
		return SequenceMismatch
	}
	return fmt.Sprintf("%s:%s≠%s", m.Field, formatInt(m.Expected), formatInt(m.Got))
}

// Field names used in failure reasons.
const (
	SequenceMismatch  = "SEQ_MISMATCH"
	FieldForwardStart = "F_start"
	FieldReverseStart = "R_start"
	FieldProductSize  = "Size"
)

// Evaluation is the comparison of a job against the pair chosen for it.
type Evaluation struct {
	Validation primerblast.Validation
	// Mismatches lists failed checks in reporting order.
	Mismatches []Mismatch
}

// Reasons renders Mismatches as strings.
func (e Evaluation) Reasons() []string {
	out := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		out = append(out, m.String())
	}
	return out
}

// Evaluate compares job against pair. Coordinate checks fail when either
// side is missing; a sequence absent on either side does not fail the
// sequence check.
func Evaluate(job primerblast.Job, pair primerblast.Pair) Evaluation {
	v := primerblast.Validation{
		SequencesMatch: sequencesAgree(job.ForwardPrimer, pair.ForwardSequence) &&
			sequencesAgree(job.ReversePrimer, pair.ReverseSequence),
		ForwardStartMatch: equalInts(job.ExpectedForwardStart(), pair.ForwardStart),
		ReverseStartMatch: equalInts(job.ExpectedReverseStart(), pair.ReverseStart),
		ProductSizeMatch:  equalInts(job.ExpectedProductSize(), pair.ProductLength),
	}

	var mismatches []Mismatch
	if !v.SequencesMatch {
		mismatches = append(mismatches, Mismatch{Field: SequenceMismatch})
	}
	if !v.ForwardStartMatch {
		mismatches = append(mismatches, Mismatch{FieldForwardStart, job.ExpectedForwardStart(), pair.ForwardStart})
	}
	if !v.ReverseStartMatch {
		mismatches = append(mismatches, Mismatch{FieldReverseStart, job.ExpectedReverseStart(), pair.ReverseStart})
	}
	if !v.ProductSizeMatch {
		mismatches = append(mismatches, Mismatch{FieldProductSize, job.ExpectedProductSize(), pair.ProductLength})
	}
	return Evaluation{Validation: v, Mismatches: mismatches}
}

func sequencesAgree(recorded string, extracted *string) bool {
	if recorded == "" || extracted == nil || *extracted == "" {
		return true
	}
	return strings.EqualFold(recorded, *extracted)
}

func equalInts(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

func formatInt(v *int) string {
	if v == nil {
		return "none"
	}
	return strconv.Itoa(*v)
}
