package report

import (
	"fmt"
	"sort"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// UnknownStatus is reported for records that carry no validation status.
const UnknownStatus = "unknown"

// Summary aggregates the outcome of a validation run.
type Summary struct {
	Total        int
	ByStatus     map[string]int
	MultiPair    int
	UsedMatching int
	// PairCounts maps "pairs found on the page" to the number of records.
	PairCounts map[int]int
}

// Summarize counts statuses and multi-pair statistics over jobs.
func Summarize(jobs []primerblast.Job) Summary {
	s := Summary{
		Total:      len(jobs),
		ByStatus:   map[string]int{},
		PairCounts: map[int]int{},
	}
	for _, job := range jobs {
		status := string(job.ValidationStatus)
		if status == "" {
			status = UnknownStatus
		}
		s.ByStatus[status]++
		if job.TotalPrimerPairsFound > 1 {
			s.MultiPair++
		}
		if job.UsedMatchingAlgorithm != nil && *job.UsedMatchingAlgorithm {
			s.UsedMatching++
		}
		if job.TotalPrimerPairsFound > 0 {
			s.PairCounts[job.TotalPrimerPairsFound]++
		}
	}
	return s
}

// RunInfo describes the window a validation run covered.
type RunInfo struct {
	Start int
	End   int
	// Windowed is true when the run did not cover the whole list from row 0.
	Windowed   bool
	OutputPath string
}

// ValidationSummary prints the end-of-run block.
func (p *Printer) ValidationSummary(s Summary, info RunInfo) {
	p.Println("")
	p.Heading("VALIDATION SUMMARY", 80)
	if info.Windowed {
		p.Println(fmt.Sprintf("\nProcessed jobs %d to %d", info.Start, info.End-1))
	}

	p.Println(fmt.Sprintf("\nTotal jobs: %d", s.Total))
	p.Println("\nStatus breakdown:")
	statuses := make([]string, 0, len(s.ByStatus))
	for status := range s.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		p.Println(fmt.Sprintf("  %s: %d", status, s.ByStatus[status]))
	}

	if n, ok := s.ByStatus[string(primerblast.StatusPass)]; ok {
		p.Println("\n" + p.paint(MarkPass, fmt.Sprintf("✓ Validation passed: %d/%d", n, s.Total)))
	}
	if n, ok := s.ByStatus[string(primerblast.StatusFail)]; ok {
		p.Println(p.paint(MarkFail, fmt.Sprintf("✗ Validation failed: %d/%d", n, s.Total)))
	}
	if n, ok := s.ByStatus[string(primerblast.StatusProcessing)]; ok {
		p.Println(p.paint(MarkWait, fmt.Sprintf("⏳ Still processing: %d/%d", n, s.Total)))
		p.Println("\n  Wait longer and run again")
	}

	if s.MultiPair > 0 {
		p.Println(fmt.Sprintf("\n📊 Multiple primer pairs detected in %d jobs", s.MultiPair))
		p.Println(fmt.Sprintf("   Matching algorithm used successfully: %d jobs", s.UsedMatching))
		if len(s.PairCounts) > 1 {
			p.Println("\n   Distribution of primer pairs found:")
			counts := make([]int, 0, len(s.PairCounts))
			for n := range s.PairCounts {
				counts = append(counts, n)
			}
			sort.Ints(counts)
			for _, n := range counts {
				p.Println(fmt.Sprintf("     %d pair(s): %d jobs", n, s.PairCounts[n]))
			}
		}
	}

	if info.OutputPath != "" {
		p.Println(fmt.Sprintf("\nResults saved to: %s", info.OutputPath))
	}
}
