package primerblast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    *int
		wantErr bool
	}{
		{name: "integer", input: `{"product_size": 150}`, want: intPtr(150)},
		{name: "integral float", input: `{"product_size": 78.0}`, want: intPtr(78)},
		{name: "numeric string", input: `{"product_size": " 212 "}`, want: intPtr(212)},
		{name: "null", input: `{"product_size": null}`},
		{name: "missing", input: `{}`},
		{name: "fractional", input: `{"product_size": 78.5}`, wantErr: true},
		{name: "garbage string", input: `{"product_size": "abc"}`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var job Job
			err := json.Unmarshal([]byte(tc.input), &job)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, job.ExpectedProductSize())
		})
	}
}

func TestJobRoundTripKeepsUnsetValidationFieldsOut(t *testing.T) {
	t.Parallel()

	job := Job{
		PrimerID:        "P001",
		LeftPrimerStart: NewCoord(78),
		Status:          SubmissionSubmitted,
	}
	data, err := json.Marshal(job)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "job_key")
	assert.Contains(t, fields, "results_url")
	assert.NotContains(t, fields, "validation_status")
	assert.NotContains(t, fields, "validation")
	assert.EqualValues(t, 78, fields["left_primer_start"])
}

func TestResetValidationClearsValidatorFields(t *testing.T) {
	t.Parallel()

	seq := "ACGT"
	passed := true
	job := Job{PrimerID: "P1", Status: SubmissionSubmitted}
	job.ValidationStatus = StatusPass
	job.TotalPrimerPairsFound = 3
	job.ApplyPair(Pair{ForwardSequence: &seq, ForwardStart: intPtr(1)})
	job.Validation = &Validation{ForwardStartMatch: true}
	job.ValidationPassed = &passed
	job.HTMLArchiveURI = "memory://x"

	job.ResetValidation()

	assert.Equal(t, Job{PrimerID: "P1", Status: SubmissionSubmitted}, job)
}

func TestValidationPassed(t *testing.T) {
	t.Parallel()

	all := Validation{ForwardStartMatch: true, ReverseStartMatch: true, ProductSizeMatch: true, SequencesMatch: true}
	assert.True(t, all.Passed())
	one := all
	one.ProductSizeMatch = false
	assert.False(t, one.Passed())
}

func TestResolveRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		total       int
		start       int
		end         *int
		want        Range
		wantClamped bool
		wantErr     bool
	}{
		{name: "whole list", total: 10, start: 0, want: Range{0, 10}},
		{name: "window", total: 10, start: 2, end: intPtr(5), want: Range{2, 5}},
		{name: "end clamped", total: 10, start: 2, end: intPtr(50), want: Range{2, 10}, wantClamped: true},
		{name: "negative start", total: 10, start: -1, wantErr: true},
		{name: "start beyond list", total: 10, start: 10, wantErr: true},
		{name: "start equals end", total: 10, start: 4, end: intPtr(4), wantErr: true},
		{name: "empty list", total: 0, start: 0, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, clamped, err := ResolveRange(tc.total, tc.start, tc.end)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantClamped, clamped)
		})
	}
}

func TestClampRange(t *testing.T) {
	t.Parallel()

	r, err := ClampRange(5, 3, intPtr(100))
	require.NoError(t, err)
	assert.Equal(t, Range{3, 5}, r)

	r, err = ClampRange(5, 9, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	r, err = ClampRange(5, 4, intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	_, err = ClampRange(5, -2, nil)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestDefaultFileNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "primer_jobs_all.json", JobsFileName(3, nil))
	assert.Equal(t, "primer_jobs_0_to_100.json", JobsFileName(0, intPtr(100)))
	assert.Equal(t, "validation_results_5_to_end.json", ResultsFileName(5, nil))
	assert.Equal(t, "validation_results_0_to_10.json", ResultsFileName(0, intPtr(10)))
}

func intPtr(v int) *int { return &v }

func TestJobKeepsUndeclaredKeys(t *testing.T) {
	t.Parallel()

	var job Job
	require.NoError(t, json.Unmarshal([]byte(`{
	  "primer_id": "P7", "status": "submitted",
	  "target_gene": "ORF1ab", "meta": {"lab": "B2", "run": 4}
	}`), &job))

	gene, ok := job.Extra("target_gene")
	require.True(t, ok)
	assert.JSONEq(t, `"ORF1ab"`, string(gene))
	_, ok = job.Extra("primer_id")
	assert.False(t, ok, "declared keys are not duplicated")

	job.ValidationStatus = StatusFail
	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	  "primer_id": "P7", "accession": "", "forward_primer": "", "reverse_primer": "",
	  "product_size": null, "left_primer_start": null, "right_primer_start": null,
	  "job_key": null, "results_url": null, "submission_time": "",
	  "status": "submitted", "validation_status": "fail",
	  "target_gene": "ORF1ab", "meta": {"lab": "B2", "run": 4}
	}`, string(data))

	var again Job
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, job, again)
}

func TestJobWithoutUndeclaredKeysHasNoExtras(t *testing.T) {
	t.Parallel()

	var job Job
	require.NoError(t, json.Unmarshal([]byte(`{"primer_id": "P1"}`), &job))
	assert.Equal(t, Job{PrimerID: "P1"}, job)
}
