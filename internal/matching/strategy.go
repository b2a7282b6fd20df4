package matching

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DispatchStrategy decides how materials are grouped into matcher calls.
// Implementations must yield the same per-material results for the same
// inputs and the same matcher; only the call pattern differs.
type DispatchStrategy interface {
	Dispatch(ctx context.Context, m *Matcher, mats []MaterialCandidates) map[string]Outcome
}

// BatchStrategy packs consecutive materials into shared calls while the
// combined distinct candidate count stays under the prompt cap. A material
// that does not combine falls back to its own per-material call.
type BatchStrategy struct{}

// Dispatch implements DispatchStrategy. Batches run concurrently up to the
// configured worker limit; a failed batch marks only its own materials.
func (BatchStrategy) Dispatch(ctx context.Context, m *Matcher, mats []MaterialCandidates) map[string]Outcome {
	batches := packBatches(mats, m.cfg.PromptMaxEpd)
	partials := make([]map[string]Outcome, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, batch := range batches {
		g.Go(func() error {
			if len(batch) == 1 {
				partials[i] = map[string]Outcome{
					batch[0].Context.ID: m.matchSingle(gCtx, batch[0]),
				}
				return nil
			}
			partials[i] = m.matchBatch(gCtx, batch)
			return nil
		})
	}
	// Workers never return errors, failures live in the outcomes.
	_ = g.Wait()

	outcomes := make(map[string]Outcome, len(mats))
	for _, partial := range partials {
		for id, outcome := range partial {
			outcomes[id] = outcome
		}
	}
	return outcomes
}

// SingleStrategy sends one call per material.
type SingleStrategy struct{}

// Dispatch implements DispatchStrategy. Calls run concurrently up to the
// configured worker limit.
func (SingleStrategy) Dispatch(ctx context.Context, m *Matcher, mats []MaterialCandidates) map[string]Outcome {
	results := make([]Outcome, len(mats))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, mat := range mats {
		g.Go(func() error {
			results[i] = m.matchSingle(gCtx, mat)
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make(map[string]Outcome, len(mats))
	for i, mat := range mats {
		outcomes[mat.Context.ID] = results[i]
	}
	return outcomes
}

// packBatches groups materials in input order. A batch closes when adding
// the next material would push the combined distinct candidate count over
// the cap; capMax <= 0 puts everything in one batch.
func packBatches(mats []MaterialCandidates, capMax int) [][]MaterialCandidates {
	var batches [][]MaterialCandidates
	var current []MaterialCandidates
	union := make(map[string]struct{})

	for _, mat := range mats {
		fresh := newIDs(union, mat)
		if len(current) > 0 && capMax > 0 && len(union)+fresh > capMax {
			batches = append(batches, current)
			current = nil
			union = make(map[string]struct{})
		}
		current = append(current, mat)
		for _, r := range mat.Candidates.Records {
			union[r.ID] = struct{}{}
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// newIDs counts the candidate ids of mat not yet in the union.
func newIDs(union map[string]struct{}, mat MaterialCandidates) int {
	fresh := 0
	seen := make(map[string]struct{})
	for _, r := range mat.Candidates.Records {
		if _, ok := union[r.ID]; ok {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh++
	}
	return fresh
}
