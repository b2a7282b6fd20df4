// Package types provides type definitions for structured data used throughout the epd-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "sort"

// Reason codes recorded on MatchResult during orchestration and validation.
const (
	// ReasonDetailFetchFailed marks a candidate that degraded to
	// minimal-field matching because its detail fetch failed.
	ReasonDetailFetchFailed = "detail_fetch_failed"
	// ReasonBelowMinConfidence marks results under the acceptance threshold.
	ReasonBelowMinConfidence = "below_min_confidence"
	// ReasonExclusionTermLowConfidence marks results that hit an exclusion
	// term while scoring at or under the exclusion ceiling.
	ReasonExclusionTermLowConfidence = "exclusion_term_low_confidence"
	// ReasonExclusionTermCap marks scores capped because the record name
	// carries an exclusion term.
	ReasonExclusionTermCap = "exclusion_term_cap"
	// ReasonLayerTermMissing marks scores capped because the record name
	// lacks the required layer term.
	ReasonLayerTermMissing = "layer_term_missing"
	// ReasonNoAsphaltReference marks scores capped because the record name
	// carries no asphalt or bitumen reference at all.
	ReasonNoAsphaltReference = "no_asphalt_reference"
)

// MatchResult is one scored candidate for one material. RawConfidence is the
// matcher's verdict and is never mutated; corrections only ever write
// CorrectedConfidence so every adjustment stays auditable.
type MatchResult struct {
	EpdID   string `json:"epd_id"`
	EpdName string `json:"epd_name,omitempty"`
	// RawConfidence is the matcher's 0..100 score.
	RawConfidence int `json:"raw_confidence"`
	// CorrectedConfidence starts equal to RawConfidence and absorbs rule
	// corrections.
	CorrectedConfidence int  `json:"corrected_confidence"`
	Excluded            bool `json:"excluded,omitempty"`
	// ReasonCodes collects correction rule ids and exclusion reasons in the
	// order they fired.
	ReasonCodes []string `json:"reason_codes,omitempty"`
	// Rationale is the matcher's free-text justification.
	Rationale string `json:"rationale,omitempty"`
}

// HasReason reports whether the given code was recorded.
func (m MatchResult) HasReason(code string) bool {
	for _, c := range m.ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}

// AddReason appends code unless already present.
func (m *MatchResult) AddReason(code string) {
	if !m.HasReason(code) {
		m.ReasonCodes = append(m.ReasonCodes, code)
	}
}

// ReportError is the explicit error marker on a report whose matching call
// failed, distinct from a legitimately empty (all-excluded) report.
type ReportError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// MaterialMatchReport is the final ordered result list for one material,
// sorted by corrected confidence descending with catalog id as tie break and
// truncated to the configured maximum.
type MaterialMatchReport struct {
	MaterialID   string        `json:"material_id"`
	MaterialName string        `json:"material_name,omitempty"`
	Results      []MatchResult `json:"results"`
	// Excluded keeps the results removed by validation for auditing.
	Excluded []MatchResult `json:"excluded,omitempty"`
	Err      *ReportError  `json:"error,omitempty"`
}

// Failed reports whether matching for this material errored out. An empty
// Results slice without Err is a valid all-excluded outcome.
func (r MaterialMatchReport) Failed() bool { return r.Err != nil }

// AcceptedIDs returns the ordered EPD ids of the surviving results.
func (r MaterialMatchReport) AcceptedIDs() []string {
	ids := make([]string, 0, len(r.Results))
	for _, m := range r.Results {
		ids = append(ids, m.EpdID)
	}
	return ids
}

// ConfidenceByID maps each surviving EPD id to its corrected confidence.
func (r MaterialMatchReport) ConfidenceByID() map[string]int {
	out := make(map[string]int, len(r.Results))
	for _, m := range r.Results {
		out[m.EpdID] = m.CorrectedConfidence
	}
	return out
}

// SortResults orders results by corrected confidence descending, ties broken
// by EPD id ascending for determinism.
func SortResults(results []MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CorrectedConfidence != results[j].CorrectedConfidence {
			return results[i].CorrectedConfidence > results[j].CorrectedConfidence
		}
		return results[i].EpdID < results[j].EpdID
	})
}
