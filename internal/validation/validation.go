// Package validation re-scores and filters raw matcher results with the
// domain correction rules and the configured thresholds, producing the final
// per-material reports. Every result runs through a small state machine:
// forced exclusions first, then confidence caps, then the acceptance
// thresholds. Raw scores are never touched; corrections only write the
// corrected confidence so each adjustment stays auditable.
package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Confidence ceilings enforced by the correction rules.
const (
	capExclusionTerm    = 25
	capLayerTermMissing = 45
	capNoReference      = 35
)

// MaterialInfo carries the material side of validation: the context for
// report naming and the parsed designation for the layer term rule.
type MaterialInfo struct {
	Context types.MaterialContext
	Parsed  types.ParsedDesignation
}

// Validator applies the correction and exclusion rules. It holds a catalog
// index so record classifications stay searchable even though results only
// carry the record name.
type Validator struct {
	records map[string]types.EpdRecord
	grammar glossary.Grammar
	cfg     config.Config
}

// New builds a Validator over the catalog listing.
func New(catalog []types.EpdRecord, g glossary.Grammar, cfg config.Config) *Validator {
	records := make(map[string]types.EpdRecord, len(catalog))
	for _, r := range catalog {
		records[r.ID] = r
	}
	return &Validator{records: records, grammar: g, cfg: cfg}
}

// Validate builds one report per material in the results map. Materials
// without an entry in mats are validated without designation attributes.
func (v *Validator) Validate(results map[string][]types.MatchResult, mats map[string]MaterialInfo) map[string]types.MaterialMatchReport {
	reports := make(map[string]types.MaterialMatchReport, len(results))
	for id, rs := range results {
		info := mats[id]
		if info.Context.ID == "" {
			info.Context.ID = id
		}
		reports[id] = v.ValidateOne(rs, info)
	}
	return reports
}

// ValidateOne runs the state machine over one material's results and
// assembles the report. Excluded results are kept on the report for
// auditing; survivors are sorted by corrected confidence and truncated to
// the configured maximum. An empty result list is a valid outcome, not an
// error.
func (v *Validator) ValidateOne(results []types.MatchResult, info MaterialInfo) types.MaterialMatchReport {
	report := types.MaterialMatchReport{
		MaterialID:   info.Context.ID,
		MaterialName: info.Context.DisplayName(),
		Results:      []types.MatchResult{},
	}

	for _, result := range results {
		v.score(&result, info)
		if result.Excluded {
			report.Excluded = append(report.Excluded, result)
			continue
		}
		report.Results = append(report.Results, result)
	}

	types.SortResults(report.Results)
	types.SortResults(report.Excluded)
	if max := v.cfg.MaxResults; max > 0 && len(report.Results) > max {
		report.Results = report.Results[:max]
	}
	return report
}

// score runs the per-result state machine in place. A forced exclusion is
// terminal regardless of score. Confidence caps only run when confidence
// validation is enabled; the acceptance thresholds always apply.
func (v *Validator) score(result *types.MatchResult, info MaterialInfo) {
	searchable := v.searchText(*result)

	if rule, ok := v.grammar.ForcedExclusion(searchable); ok {
		result.Excluded = true
		result.AddReason(rule.ID)
		return
	}

	if v.cfg.UseConfidenceValidation {
		v.applyCap(result, searchable, info)
	}

	if result.CorrectedConfidence < v.cfg.MinConfidence {
		result.Excluded = true
		result.AddReason(types.ReasonBelowMinConfidence)
	}
	if _, ok := v.grammar.ExclusionTerm(searchable); ok && result.CorrectedConfidence <= v.cfg.MaxConfidenceExcluded {
		result.Excluded = true
		result.AddReason(types.ReasonExclusionTermLowConfidence)
	}
}

// searchText is the record text the rules scan: name plus classification for
// known records, the enriched name alone for ids the catalog does not list.
func (v *Validator) searchText(result types.MatchResult) string {
	if record, ok := v.records[result.EpdID]; ok {
		return record.SearchText()
	}
	return result.EpdName
}

// applyCap enforces the first matching correction ceiling. The rationale
// records the correction only when the score actually dropped.
func (v *Validator) applyCap(result *types.MatchResult, searchable string, info MaterialInfo) {
	limit, code, grund, ok := v.capRule(result.EpdName, searchable, info)
	if !ok || result.CorrectedConfidence <= limit {
		return
	}
	result.CorrectedConfidence = limit
	result.AddReason(code)
	result.Rationale = appendCorrection(result.Rationale, grund)
}

// capRule picks the first correction that applies. Exclusion terms beat the
// layer term check, which beats the missing-reference check; only one rule
// fires per result.
func (v *Validator) capRule(name, searchable string, info MaterialInfo) (int, string, string, bool) {
	if term, ok := v.grammar.ExclusionTerm(searchable); ok {
		return capExclusionTerm, types.ReasonExclusionTermCap,
			fmt.Sprintf("Ausschluss-Begriff '%s' gefunden", term), true
	}

	if term := requiredLayerTerm(info.Parsed, v.grammar); term != "" {
		if !strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
			return capLayerTermMissing, types.ReasonLayerTermMissing,
				fmt.Sprintf("Schicht-Begriff '%s' fehlt im EPD-Namen", term), true
		}
	}

	if !v.grammar.IsGeneric(searchable) {
		return capNoReference, types.ReasonNoAsphaltReference,
			"Kein Asphalt-Bezug im EPD", true
	}

	return 0, "", "", false
}

// requiredLayerTerm is the term an EPD name must carry for the parsed layer.
func requiredLayerTerm(parsed types.ParsedDesignation, g glossary.Grammar) string {
	if parsed.LayerRole == "" {
		return ""
	}
	rule, ok := g.LayerByRole(parsed.LayerRole)
	if !ok {
		return ""
	}
	return rule.RequiredTerm
}

func appendCorrection(rationale, grund string) string {
	marker := fmt.Sprintf("[Korrigiert: %s]", grund)
	if rationale == "" {
		return marker
	}
	return rationale + " " + marker
}
