package filter

import (
	"math"
	"sort"
	"strings"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Apply reduces the catalog for one material. The strategy follows the
// configured precedence: glossary filtering when enabled, otherwise the
// legacy label filter, otherwise the full catalog is passed through for the
// orchestrator to cap.
func Apply(mctx types.MaterialContext, parsed types.ParsedDesignation, catalog []types.EpdRecord, g glossary.Grammar, cfg config.Config) types.CandidateSet {
	switch cfg.FilterStrategy() {
	case config.FilterStrategyGlossary:
		return byGlossary(mctx, parsed, catalog, g, cfg.GlossarFilterMax)
	case config.FilterStrategyLabels:
		return byLabels(mctx, catalog, cfg.FilterLabels, cfg.GlossarFilterMax)
	default:
		return passthrough(mctx, catalog)
	}
}

type scoredRecord struct {
	record     types.EpdRecord
	score      float64
	layerMatch bool
}

// byGlossary keeps records compatible with the parsed attributes. Records
// carrying an exclusion term are dropped; the rest must reference the
// material family either generically or via a type search term. Kept records
// are ranked by relevance, layer-compatible ones first, and capped.
//
// Two degraded paths stay deliberately open: when the designation did not
// parse, the filter cannot apply attributes and passes the catalog through
// capped; when strict filtering matches nothing, the entire catalog is
// returned so the matcher still sees candidates (fail-open, not fail-closed).
func byGlossary(mctx types.MaterialContext, parsed types.ParsedDesignation, catalog []types.EpdRecord, g glossary.Grammar, capMax int) types.CandidateSet {
	if !parsed.Matched() {
		set := passthrough(mctx, catalog)
		set.Records = truncate(set.Records, capMax)
		set.Stats.Returned = len(set.Records)
		set.Stats.ReductionPercent = reduction(len(catalog), len(set.Records))
		return set
	}

	var typeRule glossary.TypeRule
	if rule, ok := g.TypeByCode(parsed.MaterialType); ok {
		typeRule = rule
	}

	scored := make([]scoredRecord, 0, len(catalog))
	for _, record := range catalog {
		text := record.SearchText()
		if _, excluded := g.ExclusionTerm(text); excluded {
			continue
		}
		if !familyCompatible(text, typeRule, g) {
			continue
		}
		scored = append(scored, scoredRecord{
			record:     record,
			score:      relevanceScore(text, parsed, g),
			layerMatch: layerTermMatches(strings.ToLower(text), parsed, g),
		})
	}

	if len(scored) == 0 {
		set := passthrough(mctx, catalog)
		set.Stats.Returned = len(catalog)
		return set
	}

	sortScored(scored)
	kept := truncateScored(scored, capMax)

	primary, secondary := 0, 0
	records := make([]types.EpdRecord, 0, len(kept))
	for _, s := range kept {
		records = append(records, s.record)
		if s.layerMatch {
			primary++
		} else {
			secondary++
		}
	}

	return types.CandidateSet{
		MaterialID: mctx.ID,
		Records:    records,
		Stats: types.FilterStats{
			CatalogTotal:     len(catalog),
			Primary:          primary,
			Secondary:        secondary,
			Returned:         len(records),
			ReductionPercent: reduction(len(catalog), len(records)),
		},
	}
}

// familyCompatible gates records to the material family: a generic family
// term or any type search term must appear.
func familyCompatible(searchText string, typeRule glossary.TypeRule, g glossary.Grammar) bool {
	lower := strings.ToLower(searchText)
	if g.IsGeneric(lower) {
		return true
	}
	for _, term := range typeRule.SearchTerms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// byLabels retains records containing any configured label, ranked by hit
// count with catalog id as tiebreak.
func byLabels(mctx types.MaterialContext, catalog []types.EpdRecord, labels []string, capMax int) types.CandidateSet {
	if len(labels) == 0 {
		return passthrough(mctx, catalog)
	}

	scored := make([]scoredRecord, 0, len(catalog))
	for _, record := range catalog {
		hits := labelHits(record.SearchText(), labels)
		if hits == 0 {
			continue
		}
		scored = append(scored, scoredRecord{record: record, score: float64(hits)})
	}

	if len(scored) == 0 {
		set := passthrough(mctx, catalog)
		set.Stats.Returned = len(catalog)
		return set
	}

	sortScored(scored)
	kept := truncateScored(scored, capMax)

	records := make([]types.EpdRecord, 0, len(kept))
	for _, s := range kept {
		records = append(records, s.record)
	}

	return types.CandidateSet{
		MaterialID: mctx.ID,
		Records:    records,
		Stats: types.FilterStats{
			CatalogTotal:     len(catalog),
			Secondary:        len(records),
			Returned:         len(records),
			ReductionPercent: reduction(len(catalog), len(records)),
		},
	}
}

// passthrough returns the catalog unfiltered, flagged fail-open.
func passthrough(mctx types.MaterialContext, catalog []types.EpdRecord) types.CandidateSet {
	records := append([]types.EpdRecord(nil), catalog...)
	return types.CandidateSet{
		MaterialID: mctx.ID,
		Records:    records,
		Stats: types.FilterStats{
			CatalogTotal: len(catalog),
			Returned:     len(records),
		},
		FailOpen: true,
	}
}

// Combined unions candidate sets back into catalog order without duplicates,
// for batch prompts that share one EPD list across materials. Record values
// are taken from the sets, not the catalog, so detail fields loaded after
// filtering survive; ids the catalog does not list keep first-seen order at
// the end.
func Combined(catalog []types.EpdRecord, sets []types.CandidateSet) []types.EpdRecord {
	var order []string
	wanted := make(map[string]types.EpdRecord)
	for _, set := range sets {
		for _, record := range set.Records {
			if _, ok := wanted[record.ID]; !ok {
				wanted[record.ID] = record
				order = append(order, record.ID)
			}
		}
	}

	combined := make([]types.EpdRecord, 0, len(wanted))
	emitted := make(map[string]bool, len(wanted))
	for _, record := range catalog {
		if kept, ok := wanted[record.ID]; ok && !emitted[record.ID] {
			combined = append(combined, kept)
			emitted[record.ID] = true
		}
	}
	for _, id := range order {
		if !emitted[id] {
			combined = append(combined, wanted[id])
		}
	}
	return combined
}

// Rank orders records by relevance for a parsed designation, highest first
// with id ascending on ties. The orchestrator uses it to truncate oversized
// candidate sets before dispatch.
func Rank(records []types.EpdRecord, parsed types.ParsedDesignation, g glossary.Grammar) []types.EpdRecord {
	scored := make([]scoredRecord, 0, len(records))
	for _, record := range records {
		scored = append(scored, scoredRecord{
			record: record,
			score:  relevanceScore(record.SearchText(), parsed, g),
		})
	}
	sortScored(scored)

	out := make([]types.EpdRecord, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.record)
	}
	return out
}

// sortScored orders by score descending, record id ascending on ties.
func sortScored(scored []scoredRecord) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].record.ID < scored[j].record.ID
	})
}

func truncateScored(scored []scoredRecord, capMax int) []scoredRecord {
	if capMax > 0 && len(scored) > capMax {
		return scored[:capMax]
	}
	return scored
}

func truncate(records []types.EpdRecord, capMax int) []types.EpdRecord {
	if capMax > 0 && len(records) > capMax {
		return records[:capMax]
	}
	return records
}

func reduction(total, returned int) float64 {
	if total == 0 {
		return 0
	}
	pct := (1 - float64(returned)/float64(total)) * 100
	return math.Round(pct*10) / 10
}
