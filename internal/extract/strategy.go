package extract

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// RowLabel identifies a primer row inside a pair section.
type RowLabel int

// Row labels in page order.
const (
	Forward RowLabel = iota
	Reverse
)

func (l RowLabel) String() string {
	if l == Reverse {
		return "Reverse primer"
	}
	return "Forward primer"
}

const productLabel = "Product length"

// PrimerRow is one primer table row: sequence, strand, length, start, stop.
type PrimerRow struct {
	Sequence string
	Strand   string
	Length   int
	Start    int
	Stop     int
}

// Section is one pair fragment of a result page. The DOM is parsed lazily and
// at most once.
type Section struct {
	Index int
	HTML  string

	once sync.Once
	doc  *goquery.Document
	err  error
}

// NewSection wraps a fragment with its 1-based pair index.
func NewSection(index int, html string) *Section {
	return &Section{Index: index, HTML: html}
}

// Document returns the parsed fragment.
func (s *Section) Document() (*goquery.Document, error) {
	s.once.Do(func() {
		s.doc, s.err = goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	})
	return s.doc, s.err
}

// RowStrategy locates rows inside a section.
type RowStrategy interface {
	Name() string
	PrimerRow(section *Section, label RowLabel) (PrimerRow, bool)
	ProductLength(section *Section) (int, bool)
}

var (
	forwardRowPattern = regexp.MustCompile(
		`(?i)<tr><th>Forward\s+primer</th><td>([ATCGN]+)</td><td>([^<]+)</td><td>(\d+)</td><td>(\d+)</td><td>(\d+)</td>`)
	reverseRowPattern = regexp.MustCompile(
		`(?i)<tr><th>Reverse\s+primer</th><td>([ATCGN]+)</td><td>([^<]+)</td><td>(\d+)</td><td>(\d+)</td><td>(\d+)</td>`)
	productRowPattern = regexp.MustCompile(`(?i)<tr><th>Product\s+length</th><td[^>]*>(\d+)</td></tr>`)
	sequencePattern   = regexp.MustCompile(`(?i)^[ATCGN]+$`)
)

// PatternRowStrategy matches the fixed markup Primer-BLAST emits for its pair
// tables.
type PatternRowStrategy struct{}

// Name implements RowStrategy.
func (PatternRowStrategy) Name() string { return "pattern" }

// PrimerRow implements RowStrategy.
func (PatternRowStrategy) PrimerRow(section *Section, label RowLabel) (PrimerRow, bool) {
	pattern := forwardRowPattern
	if label == Reverse {
		pattern = reverseRowPattern
	}
	m := pattern.FindStringSubmatch(section.HTML)
	if m == nil {
		return PrimerRow{}, false
	}
	nums, ok := atois(m[3], m[4], m[5])
	if !ok {
		return PrimerRow{}, false
	}
	return PrimerRow{Sequence: m[1], Strand: m[2], Length: nums[0], Start: nums[1], Stop: nums[2]}, true
}

// ProductLength implements RowStrategy.
func (PatternRowStrategy) ProductLength(section *Section) (int, bool) {
	m := productRowPattern.FindStringSubmatch(section.HTML)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// TableRowStrategy walks the DOM and reads rows by their header cell, so it
// tolerates whitespace, attributes and nesting the pattern does not.
type TableRowStrategy struct{}

// Name implements RowStrategy.
func (TableRowStrategy) Name() string { return "table" }

// PrimerRow implements RowStrategy.
func (TableRowStrategy) PrimerRow(section *Section, label RowLabel) (PrimerRow, bool) {
	var (
		row   PrimerRow
		found bool
	)
	eachLabeledRow(section, label.String(), func(cells *goquery.Selection) bool {
		if cells.Length() < 5 {
			return true
		}
		seq := strings.TrimSpace(cells.Eq(0).Text())
		if !sequencePattern.MatchString(seq) {
			return true
		}
		nums, ok := atois(cells.Eq(2).Text(), cells.Eq(3).Text(), cells.Eq(4).Text())
		if !ok {
			return true
		}
		row = PrimerRow{
			Sequence: seq,
			Strand:   strings.TrimSpace(cells.Eq(1).Text()),
			Length:   nums[0],
			Start:    nums[1],
			Stop:     nums[2],
		}
		found = true
		return false
	})
	return row, found
}

// ProductLength implements RowStrategy.
func (TableRowStrategy) ProductLength(section *Section) (int, bool) {
	var (
		length int
		found  bool
	)
	eachLabeledRow(section, productLabel, func(cells *goquery.Selection) bool {
		n, err := strconv.Atoi(strings.TrimSpace(cells.First().Text()))
		if err != nil {
			return true
		}
		length, found = n, true
		return false
	})
	return length, found
}

// eachLabeledRow calls fn with the data cells of every row whose header reads
// label, until fn returns false.
func eachLabeledRow(section *Section, label string, fn func(cells *goquery.Selection) bool) {
	doc, err := section.Document()
	if err != nil {
		return
	}
	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		header := strings.Join(strings.Fields(tr.Find("th").First().Text()), " ")
		if !strings.EqualFold(header, label) {
			return true
		}
		return fn(tr.Find("td"))
	})
}

func atois(values ...string) ([]int, bool) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
