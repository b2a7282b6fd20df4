// Package types provides type definitions for structured data used throughout the epd-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortResults_ConfidenceDescending(t *testing.T) {
	results := []MatchResult{
		{EpdID: "epd-3", CorrectedConfidence: 40},
		{EpdID: "epd-1", CorrectedConfidence: 90},
		{EpdID: "epd-2", CorrectedConfidence: 70},
	}

	SortResults(results)

	assert.Equal(t, "epd-1", results[0].EpdID)
	assert.Equal(t, "epd-2", results[1].EpdID)
	assert.Equal(t, "epd-3", results[2].EpdID)
}

func TestSortResults_TieBreakByID(t *testing.T) {
	results := []MatchResult{
		{EpdID: "epd-9", CorrectedConfidence: 60},
		{EpdID: "epd-2", CorrectedConfidence: 60},
		{EpdID: "epd-5", CorrectedConfidence: 60},
	}

	SortResults(results)

	assert.Equal(t, []string{"epd-2", "epd-5", "epd-9"},
		[]string{results[0].EpdID, results[1].EpdID, results[2].EpdID})
}

func TestMatchResult_AddReasonDeduplicates(t *testing.T) {
	m := MatchResult{EpdID: "epd-1"}
	m.AddReason(ReasonLayerTermMissing)
	m.AddReason(ReasonLayerTermMissing)
	m.AddReason(ReasonBelowMinConfidence)

	assert.Equal(t, []string{ReasonLayerTermMissing, ReasonBelowMinConfidence}, m.ReasonCodes)
	assert.True(t, m.HasReason(ReasonLayerTermMissing))
	assert.False(t, m.HasReason(ReasonDetailFetchFailed))
}

func TestMaterialMatchReport_FailedVsEmpty(t *testing.T) {
	empty := MaterialMatchReport{MaterialID: "material-001"}
	assert.False(t, empty.Failed(), "all-excluded report is not a failure")

	failed := MaterialMatchReport{
		MaterialID: "material-002",
		Err:        &ReportError{Stage: "match_epds", Message: "deadline exceeded"},
	}
	assert.True(t, failed.Failed())
}

func TestMaterialMatchReport_AcceptedIDsAndConfidences(t *testing.T) {
	report := MaterialMatchReport{
		MaterialID: "material-001",
		Results: []MatchResult{
			{EpdID: "epd-1", RawConfidence: 90, CorrectedConfidence: 90},
			{EpdID: "epd-2", RawConfidence: 80, CorrectedConfidence: 45},
		},
	}

	assert.Equal(t, []string{"epd-1", "epd-2"}, report.AcceptedIDs())
	assert.Equal(t, map[string]int{"epd-1": 90, "epd-2": 45}, report.ConfidenceByID())
}

func TestMaterialMatchReport_JSONKeepsRawAndCorrected(t *testing.T) {
	report := MaterialMatchReport{
		MaterialID: "material-001",
		Results: []MatchResult{
			{EpdID: "epd-1", RawConfidence: 80, CorrectedConfidence: 25, ReasonCodes: []string{ReasonExclusionTermCap}},
		},
	}

	jsonBytes, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(jsonBytes), `"raw_confidence":80`)
	assert.Contains(t, string(jsonBytes), `"corrected_confidence":25`)
	assert.Contains(t, string(jsonBytes), `"exclusion_term_cap"`)
}
