// Package extract reads candidate primer pairs out of Primer-BLAST result pages.
//
// A page is split into one section per "Primer pair N" heading and each
// section is searched for its forward, reverse and product-length rows by a
// prioritized list of RowStrategy implementations. Extraction never fails: rows
// that cannot be located leave the corresponding Pair fields nil.
package extract

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

var sectionMarker = regexp.MustCompile(`(?i)<h3[^>]*>Primer pair \d+</h3>`)

// Sections splits a result page into per-pair fragments. Text before the first
// heading is discarded; a page without headings is returned as one section.
func Sections(html string) []string {
	parts := sectionMarker.Split(html, -1)
	if len(parts) <= 1 {
		return []string{html}
	}
	return parts[1:]
}

// Extractor turns a result page into candidate pairs.
type Extractor struct {
	strategies []RowStrategy
	logger     *zap.Logger
}

// New builds an Extractor. Without explicit strategies the positional pattern
// is tried first and the DOM table walk second.
func New(logger *zap.Logger, strategies ...RowStrategy) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = []RowStrategy{PatternRowStrategy{}, TableRowStrategy{}}
	}
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract returns every pair whose forward start could be read, in page order.
func (e *Extractor) Extract(html string) []primerblast.Pair {
	var pairs []primerblast.Pair
	for i, body := range Sections(html) {
		section := NewSection(i+1, body)
		pair := e.extractSection(section)
		if pair.ForwardStart == nil {
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

func (e *Extractor) extractSection(section *Section) primerblast.Pair {
	pair := primerblast.Pair{Index: section.Index}

	if row, ok := e.primerRow(section, Forward); ok {
		pair.ForwardSequence = &row.Sequence
		pair.ForwardStart = &row.Start
		pair.ForwardEnd = &row.Stop
	}
	if row, ok := e.primerRow(section, Reverse); ok {
		pair.ReverseSequence = &row.Sequence
		pair.ReverseStart = &row.Start
		pair.ReverseEnd = &row.Stop
	}
	if length, ok := e.productLength(section); ok {
		pair.ProductLength = &length
	}
	return pair
}

func (e *Extractor) primerRow(section *Section, label RowLabel) (PrimerRow, bool) {
	for _, strategy := range e.strategies {
		if row, ok := strategy.PrimerRow(section, label); ok {
			e.logger.Debug("primer row found",
				zap.Int("pair", section.Index),
				zap.String("row", label.String()),
				zap.String("strategy", strategy.Name()),
			)
			return row, true
		}
	}
	e.logger.Warn("primer row not found",
		zap.Int("pair", section.Index),
		zap.String("row", label.String()),
	)
	return PrimerRow{}, false
}

func (e *Extractor) productLength(section *Section) (int, bool) {
	for _, strategy := range e.strategies {
		if length, ok := strategy.ProductLength(section); ok {
			return length, true
		}
	}
	e.logger.Warn("product length not found", zap.Int("pair", section.Index))
	return 0, false
}
