// Package match selects the primer pair on a result page that corresponds to
// a submitted job.
package match

import "github.com/JakeFAU/primerblast-validator/internal/primerblast"

// Expected holds the coordinates a job was submitted with. Nil fields are
// not constrained.
type Expected struct {
	ForwardStart *int
	ReverseStart *int
	ProductSize  *int
}

// ExpectedFor reads the expected coordinates off a job.
func ExpectedFor(job primerblast.Job) Expected {
	return Expected{
		ForwardStart: job.ExpectedForwardStart(),
		ReverseStart: job.ExpectedReverseStart(),
		ProductSize:  job.ExpectedProductSize(),
	}
}

// Result is the pair chosen by Find.
type Result struct {
	Pair primerblast.Pair
	// Confirmed is false when no pair satisfied Expected and the first pair
	// was returned as a fallback.
	Confirmed bool
}

// Find returns the first pair, in page order, that satisfies want. When none
// does, the first pair is returned unconfirmed. ok is false only when pairs is
// empty.
func Find(pairs []primerblast.Pair, want Expected) (Result, bool) {
	if len(pairs) == 0 {
		return Result{}, false
	}
	for _, p := range pairs {
		if Satisfies(p, want) {
			return Result{Pair: p, Confirmed: true}, true
		}
	}
	return Result{Pair: pairs[0]}, true
}

// Satisfies reports whether every expected value is either absent on the
// pair or equal to it.
func Satisfies(p primerblast.Pair, want Expected) bool {
	return agrees(want.ForwardStart, p.ForwardStart) &&
		agrees(want.ReverseStart, p.ReverseStart) &&
		agrees(want.ProductSize, p.ProductLength)
}

func agrees(want, got *int) bool {
	return want == nil || got == nil || *want == *got
}
