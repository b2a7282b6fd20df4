// Package matching orchestrates the semantic matching stage. Candidate sets
// and material contexts are packed into prompts sized to the configured EPD
// cap, dispatched to the LLM matcher, and the responses reassembled into raw
// per-material results. Confidence corrections happen downstream; this
// package reports what the matcher said, plus error markers for the calls
// that failed.
package matching

import (
	"context"
	"time"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/filter"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/llm"
	"github.com/jonathan/epd-matcher/internal/types"
)

// matchCallTimeout bounds one matcher call so a hung batch fails alone
// instead of stalling the whole run.
const matchCallTimeout = 3 * time.Minute

// MaterialCandidates bundles one material with its parsed attributes and
// filtered candidate records.
type MaterialCandidates struct {
	Context    types.MaterialContext
	Parsed     types.ParsedDesignation
	Candidates types.CandidateSet
}

// Outcome is the raw matcher verdict for one material: either results or the
// error that replaced them. Raw means no confidence corrections have run yet.
type Outcome struct {
	Results []types.MatchResult
	Err     *types.ReportError
}

// Failed reports whether the matcher call for this material errored out.
func (o Outcome) Failed() bool { return o.Err != nil }

// DetailLoader fetches extended catalog fields for candidate ids, tolerating
// per-id failures. The catalog client implements it.
type DetailLoader interface {
	Details(ctx context.Context, ids []string) ([]types.EpdRecord, map[string]error)
}

// Matcher holds the shared state for one run: the catalog listing loaded
// once at startup, the LLM client, and the optional detail loader.
type Matcher struct {
	client  llm.Client
	details DetailLoader
	catalog []types.EpdRecord
	grammar glossary.Grammar
	cfg     config.Config
}

// New builds a Matcher over a catalog listing. details may be nil when
// detail matching is disabled.
func New(client llm.Client, details DetailLoader, catalog []types.EpdRecord, g glossary.Grammar, cfg config.Config) *Matcher {
	return &Matcher{client: client, details: details, catalog: catalog, grammar: g, cfg: cfg}
}

// Match runs the matching stage for all materials and returns one Outcome
// per material id. A failed call marks only the materials of its batch;
// sibling batches still run.
func (m *Matcher) Match(ctx context.Context, mats []MaterialCandidates) map[string]Outcome {
	if len(mats) == 0 {
		return map[string]Outcome{}
	}

	prepared := m.capped(mats)
	degraded := m.loadDetails(ctx, prepared)

	outcomes := m.strategy().Dispatch(ctx, m, prepared)

	flagDegraded(outcomes, degraded)
	return outcomes
}

func (m *Matcher) strategy() DispatchStrategy {
	if m.cfg.UseBatchMode {
		return BatchStrategy{}
	}
	return SingleStrategy{}
}

func (m *Matcher) tier() llm.ModelTier {
	if m.cfg.ModelTier == "" {
		return llm.TierStandard
	}
	return llm.ModelTier(m.cfg.ModelTier)
}

func (m *Matcher) workers() int {
	if m.cfg.ParallelWorkers < 1 {
		return 1
	}
	return m.cfg.ParallelWorkers
}

// capped enforces the per-call candidate cap. Sets at or under the cap keep
// their filter order; oversized sets are re-ranked by relevance and cut,
// never truncated arbitrarily. Records are copied so detail loading cannot
// write into the caller's sets.
func (m *Matcher) capped(mats []MaterialCandidates) []MaterialCandidates {
	capMax := m.cfg.PromptMaxEpd
	out := make([]MaterialCandidates, len(mats))
	for i, mat := range mats {
		records := mat.Candidates.Records
		if capMax > 0 && len(records) > capMax {
			records = filter.Rank(records, mat.Parsed, m.grammar)[:capMax]
		} else {
			records = append([]types.EpdRecord(nil), records...)
		}
		mat.Candidates.Records = records
		out[i] = mat
	}
	return out
}

// loadDetails swaps candidate records for their detail-loaded versions when
// detail matching is enabled. Returns the ids whose fetch failed; those keep
// their minimal fields.
func (m *Matcher) loadDetails(ctx context.Context, mats []MaterialCandidates) map[string]bool {
	if !m.cfg.UseDetailMatching || m.details == nil {
		return nil
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, mat := range mats {
		for _, r := range mat.Candidates.Records {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	records, failures := m.details.Details(ctx, ids)
	detailed := make(map[string]types.EpdRecord, len(records))
	for _, r := range records {
		detailed[r.ID] = r
	}

	for _, mat := range mats {
		rs := mat.Candidates.Records
		for i := range rs {
			if d, ok := detailed[rs[i].ID]; ok {
				rs[i] = d
			}
		}
	}

	degraded := make(map[string]bool, len(failures))
	for id := range failures {
		degraded[id] = true
	}
	return degraded
}

// matchBatch sends one combined call for a batch of materials and fans the
// parsed layers back out to their materials.
func (m *Matcher) matchBatch(ctx context.Context, batch []MaterialCandidates) map[string]Outcome {
	sets := make([]types.CandidateSet, len(batch))
	for i, mat := range batch {
		sets[i] = mat.Candidates
	}
	combined := filter.Combined(m.catalog, sets)
	if len(combined) == 0 {
		return emptyAll(batch)
	}

	prompt := BuildBatchPrompt(batch, combined, m.grammar, m.cfg)

	callCtx, cancel := context.WithTimeout(ctx, matchCallTimeout)
	defer cancel()
	raw, err := m.client.GenerateJSON(callCtx, prompt, m.tier())
	if err != nil {
		return failAll(batch, StageMatcherCall, err)
	}

	perLayer, err := ParseBatchResponse(raw, len(batch))
	if err != nil {
		return failAll(batch, StageResponseParse, err)
	}

	names := nameIndex(combined)
	outcomes := make(map[string]Outcome, len(batch))
	for i, mat := range batch {
		outcomes[mat.Context.ID] = Outcome{Results: enrich(perLayer[i], names)}
	}
	return outcomes
}

// matchSingle sends one call for one material.
func (m *Matcher) matchSingle(ctx context.Context, mat MaterialCandidates) Outcome {
	records := mat.Candidates.Records
	if len(records) == 0 {
		return Outcome{Results: []types.MatchResult{}}
	}

	prompt := BuildSinglePrompt(mat, records, m.grammar, m.cfg)

	callCtx, cancel := context.WithTimeout(ctx, matchCallTimeout)
	defer cancel()
	raw, err := m.client.GenerateJSON(callCtx, prompt, m.tier())
	if err != nil {
		return failedOutcome(StageMatcherCall, err)
	}

	results, err := ParseSingleResponse(raw)
	if err != nil {
		return failedOutcome(StageResponseParse, err)
	}
	return Outcome{Results: enrich(results, nameIndex(records))}
}

func failedOutcome(stage string, err error) Outcome {
	return Outcome{Err: &types.ReportError{Stage: stage, Message: err.Error()}}
}

func failAll(batch []MaterialCandidates, stage string, err error) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(batch))
	for _, mat := range batch {
		outcomes[mat.Context.ID] = failedOutcome(stage, err)
	}
	return outcomes
}

func emptyAll(batch []MaterialCandidates) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(batch))
	for _, mat := range batch {
		outcomes[mat.Context.ID] = Outcome{Results: []types.MatchResult{}}
	}
	return outcomes
}

// nameIndex maps candidate ids to names for result enrichment.
func nameIndex(records []types.EpdRecord) map[string]string {
	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.ID] = r.Name
	}
	return names
}

// enrich fills in candidate names. Ids the matcher returned that are not in
// the candidate list stay, with an empty name; the validator scores them
// down.
func enrich(results []types.MatchResult, names map[string]string) []types.MatchResult {
	for i := range results {
		results[i].EpdName = names[results[i].EpdID]
	}
	return results
}

// flagDegraded marks results whose candidate fell back to minimal fields
// because its detail fetch failed.
func flagDegraded(outcomes map[string]Outcome, degraded map[string]bool) {
	if len(degraded) == 0 {
		return
	}
	for _, outcome := range outcomes {
		for i := range outcome.Results {
			if degraded[outcome.Results[i].EpdID] {
				outcome.Results[i].AddReason(types.ReasonDetailFetchFailed)
			}
		}
	}
}
