package submit

import (
	"strconv"

	"github.com/JakeFAU/primerblast-validator/internal/input"
)

// SizeRange is the PCR product window requested from Primer-BLAST.
type SizeRange struct {
	Min int
	Max int
}

// ProductSizeRange maps a designed product size onto one of three fixed
// bands: below 150 asks for 100-200, up to 200 asks for 150-200, anything
// larger asks for 300-500.
func ProductSizeRange(size int) SizeRange {
	switch {
	case size < 150:
		return SizeRange{Min: 100, Max: 200}
	case size <= 200:
		return SizeRange{Min: 150, Max: 200}
	default:
		return SizeRange{Min: 300, Max: 500}
	}
}

// FormParams builds the primertool.cgi form for one row.
func FormParams(row input.Row, organism string) map[string]string {
	band := ProductSizeRange(row.ProductSize)
	return map[string]string{
		"CMD":                               "request",
		"INPUT_SEQUENCE":                    row.Accession,
		"PRIMER_LEFT_INPUT":                 row.LeftPrimerSeq,
		"PRIMER_RIGHT_INPUT":                row.RightPrimerSeq,
		"PRIMER_PRODUCT_MIN":                strconv.Itoa(band.Min),
		"PRIMER_PRODUCT_MAX":                strconv.Itoa(band.Max),
		"PRIMER_MIN_TM":                     "58",
		"PRIMER_OPT_TM":                     "60",
		"PRIMER_MAX_TM":                     "62",
		"PRIMER_MAX_DIFF_TM":                "5",
		"ORGANISM":                          organism,
		"PRIMER_SPECIFICITY_DATABASE":       "nt",
		"TOTAL_PRIMER_SPECIFICITY_MISMATCH": "1",
		"PRIMER_3END_SPECIFICITY_MISMATCH":  "1",
		"MISMATCH_REGION_LENGTH":            "5",
		"MAX_TARGET_SIZE":                   strconv.Itoa(band.Max),
		"SEARCHMODE":                        "0",
		"SEARCH_SPECIFIC_PRIMER":            "on",
		"ENTREZ_QUERY":                      row.Accession,
		"NUM_TARGETS":                       "1000",
		"NUM_TARGETS_WITH_PRIMERS":          "1000",
		"SHOW_SVIEWER":                      "true",
		"PRIMER_NUM_RETURN":                 "20",
	}
}
