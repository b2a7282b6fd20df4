package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/llm"
	"github.com/jonathan/epd-matcher/internal/matching"
	"github.com/jonathan/epd-matcher/internal/types"
)

// fakeClient is a scripted matcher client. Replies are routed on prompt
// content so batch and single dispatch can share one fake.
type fakeClient struct {
	mu    sync.Mutex
	calls int
	reply func(prompt string) (string, error)
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.reply(prompt)
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Usage() llm.UsageTotals {
	f.mu.Lock()
	defer f.mu.Unlock()
	return llm.UsageTotals{Calls: f.calls, TotalTokens: int64(f.calls) * 100}
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pipelineCatalog() []types.EpdRecord {
	return []types.EpdRecord{
		{ID: "10", Name: "Asphalttragschicht AC 32 T N", Classification: "Asphaltschichten"},
		{ID: "20", Name: "Asphaltbinderschicht AC 16 B S", Classification: "Asphaltschichten"},
		{ID: "30", Name: "Asphaltdeckschicht AC 11 D S", Classification: "Asphaltschichten"},
		{ID: "40", Name: "Betonpflaster grau", Classification: "Pflastersteine"},
	}
}

func pipelineItems() []types.RawLineItem {
	vol := types.FlexibleFloat(12.5)
	return []types.RawLineItem{
		{Material: "AC 32 T N", Name: "Tragschicht OK -4.0", Volume: &vol, GUIDs: []string{"guid-base"}},
		{Material: "AC 16 B S"},
	}
}

const pipelineBatchReply = `{
  "results": [
    {"schicht": 1, "matches": [
      {"id": "10", "confidence": 90, "begruendung": "Tragschicht passt"},
      {"id": "40", "confidence": 80, "begruendung": "Pflaster"}
    ]},
    {"schicht": 2, "matches": [
      {"id": "20", "confidence": 85, "begruendung": "Binder passt"}
    ]}
  ]
}`

func TestRun_BatchProducesOrderedReports(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return pipelineBatchReply, nil
	}}

	result, err := Run(context.Background(), RunOptions{
		Items:   pipelineItems(),
		Config:  config.Default(),
		Client:  client,
		Catalog: pipelineCatalog(),
	})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)

	assert.Equal(t, 1, client.callCount(), "batch mode should share one matcher call")
	assert.Equal(t, uuid.Nil, result.RunID, "no database configured")
	assert.Equal(t, 1, result.Usage.Calls)

	base := result.Reports[0]
	assert.Equal(t, "guid-base", base.MaterialID)
	require.False(t, base.Failed())
	assert.Equal(t, []string{"10", "40"}, base.AcceptedIDs())
	assert.Equal(t, "Asphalttragschicht AC 32 T N", base.Results[0].EpdName)
	assert.Equal(t, 90, base.Results[0].CorrectedConfidence)

	// The concrete paver hit stays above the exclusion ceiling but is
	// capped by the exclusion term rule.
	capped := base.Results[1]
	assert.Equal(t, "40", capped.EpdID)
	assert.Equal(t, 80, capped.RawConfidence)
	assert.Equal(t, 25, capped.CorrectedConfidence)
	assert.True(t, capped.HasReason(types.ReasonExclusionTermCap))

	binder := result.Reports[1]
	assert.Equal(t, "material-002", binder.MaterialID)
	assert.Equal(t, []string{"20"}, binder.AcceptedIDs())

	assert.Equal(t, 2, result.MatchedCount())
	assert.Equal(t, 0, result.FailedCount())
}

func TestRun_EmitsProgressEvents(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return pipelineBatchReply, nil
	}}

	var events []ProgressEvent
	_, err := Run(context.Background(), RunOptions{
		Items:   pipelineItems(),
		Config:  config.Default(),
		Client:  client,
		Catalog: pipelineCatalog(),
		OnProgress: func(event ProgressEvent) {
			events = append(events, event)
		},
	})
	require.NoError(t, err)

	var steps []string
	for _, event := range events {
		steps = append(steps, event.Step)
	}
	assert.Equal(t, []string{
		"extract_context",
		"parse_designation",
		"filter_candidates",
		"match_epds",
		"validate_confidence",
		"validate_confidence",
	}, steps)

	perMaterial := events[len(events)-2]
	assert.Equal(t, "guid-base", perMaterial.MaterialID)
	report, ok := perMaterial.Content.(types.MaterialMatchReport)
	require.True(t, ok, "per-material events carry the report")
	assert.Equal(t, "guid-base", report.MaterialID)
}

func TestRun_SingleModeFailureIsolatesMaterial(t *testing.T) {
	client := &fakeClient{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, `"AC 16 B S"`) {
			return "", assert.AnError
		}
		return `{"matches": [{"id": "10", "confidence": 88, "begruendung": "passt"}]}`, nil
	}}

	cfg := config.Default()
	cfg.UseBatchMode = false

	result, err := Run(context.Background(), RunOptions{
		Items:   pipelineItems(),
		Config:  cfg,
		Client:  client,
		Catalog: pipelineCatalog(),
	})
	require.NoError(t, err, "per-material matcher failures never fail the run")
	require.Len(t, result.Reports, 2)

	ok := result.Reports[0]
	require.False(t, ok.Failed())
	assert.Equal(t, []string{"10"}, ok.AcceptedIDs())

	failed := result.Reports[1]
	require.True(t, failed.Failed())
	assert.Equal(t, matching.StageMatcherCall, failed.Err.Stage)
	assert.Empty(t, failed.Results)

	assert.Equal(t, 1, result.MatchedCount())
	assert.Equal(t, 1, result.FailedCount())
}

func TestRun_GlossaryDisabledStillMatches(t *testing.T) {
	client := &fakeClient{reply: func(prompt string) (string, error) {
		// Without the glossary no designation is decoded.
		if !strings.Contains(prompt, "kein Asphalt erkannt") {
			return "", assert.AnError
		}
		return pipelineBatchReply, nil
	}}

	cfg := config.Default()
	cfg.UseGlossar = false

	result, err := Run(context.Background(), RunOptions{
		Items:   pipelineItems(),
		Config:  cfg,
		Client:  client,
		Catalog: pipelineCatalog(),
	})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)
	assert.False(t, result.Reports[0].Failed())
	assert.NotEmpty(t, result.Reports[0].Results)
}

func TestRun_MissingMatcherCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.GeminiAPIKey = ""

	result, err := Run(context.Background(), RunOptions{
		Items:   pipelineItems(),
		Config:  cfg,
		Catalog: pipelineCatalog(),
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "matcher client")
}

func TestRun_MissingCatalogCredentials(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return pipelineBatchReply, nil
	}}

	result, err := Run(context.Background(), RunOptions{
		Items:  pipelineItems(),
		Config: config.Default(),
		Client: client,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "catalog")
}

func TestRun_NoItems(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return pipelineBatchReply, nil
	}}

	result, err := Run(context.Background(), RunOptions{
		Config:  config.Default(),
		Client:  client,
		Catalog: pipelineCatalog(),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Reports)
	assert.Equal(t, 0, client.callCount())
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, "completed", runStatus(0, 0))
	assert.Equal(t, "completed", runStatus(3, 0))
	assert.Equal(t, "partial", runStatus(3, 1))
	assert.Equal(t, "failed", runStatus(3, 3))
}
