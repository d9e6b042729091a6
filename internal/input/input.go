// Package input loads the primer table that drives job submission.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Column names of the primer table.
const (
	ColPrimerID         = "primer_id"
	ColAccession        = "accession"
	ColLeftPrimerSeq    = "left_primer_seq"
	ColRightPrimerSeq   = "right_primer_seq"
	ColProductSize      = "product_size"
	ColLeftPrimerStart  = "left_primer_start"
	ColRightPrimerStart = "right_primer_start"
)

var requiredColumns = []string{
	ColPrimerID, ColAccession, ColLeftPrimerSeq, ColRightPrimerSeq, ColProductSize,
}

// Row is one primer pair to submit.
type Row struct {
	PrimerID         string
	Accession        string
	LeftPrimerSeq    string
	RightPrimerSeq   string
	ProductSize      int
	LeftPrimerStart  *int
	RightPrimerStart *int
}

// Load reads the primer table at path.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open primer table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads a header row followed by primer rows. Columns may appear in any
// order; extra columns are ignored. The start columns are optional and may be
// blank.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty primer table", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string, index map[string]int) (Row, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	size, err := parseInt(field(ColProductSize))
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColProductSize, err)
	}
	row := Row{
		PrimerID:       field(ColPrimerID),
		Accession:      field(ColAccession),
		LeftPrimerSeq:  field(ColLeftPrimerSeq),
		RightPrimerSeq: field(ColRightPrimerSeq),
		ProductSize:    size,
	}
	if row.LeftPrimerStart, err = parseOptionalInt(field(ColLeftPrimerStart)); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColLeftPrimerStart, err)
	}
	if row.RightPrimerStart, err = parseOptionalInt(field(ColRightPrimerStart)); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColRightPrimerStart, err)
	}
	return row, nil
}

// parseInt accepts integers and integral decimals such as "150.0", which
// spreadsheet exports commonly produce.
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("parse %q: not an integer", s)
	}
	return int(f), nil
}

func parseOptionalInt(s string) (*int, error) {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return nil, nil
	}
	n, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
