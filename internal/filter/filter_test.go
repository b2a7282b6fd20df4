package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/types"
)

func testCatalog() []types.EpdRecord {
	return []types.EpdRecord{
		{ID: "1", Name: "Asphaltdeckschicht nach TL Asphalt", Classification: "Straßenbau"},
		{ID: "2", Name: "Asphaltbinder für Bundesstraßen", Classification: "Straßenbau"},
		{ID: "3", Name: "Asphalttragschicht Standard", Classification: "Straßenbau"},
		{ID: "4", Name: "Betonpflaster grau", Classification: "Pflaster"},
		{ID: "5", Name: "Splittmastixasphalt SMA", Classification: "Straßenbau"},
		{ID: "6", Name: "Gussasphalt für Brücken", Classification: "Brückenbau"},
		{ID: "7", Name: "Zement CEM I", Classification: "Bindemittel"},
	}
}

func binderDesignation() types.ParsedDesignation {
	return types.ParsedDesignation{
		MaterialType: "AC",
		NominalSize:  16,
		LayerRole:    types.LayerBinder,
		StressClass:  "S",
	}
}

func ids(records []types.EpdRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestByGlossary_BinderLayer(t *testing.T) {
	mctx := types.MaterialContext{ID: "m1"}
	g := glossary.Asphalt()

	set := byGlossary(mctx, binderDesignation(), testCatalog(), g, 100)

	assert.Equal(t, "m1", set.MaterialID)
	assert.False(t, set.FailOpen)

	// Betonpflaster is excluded, Zement fails the family gate; the binder
	// record ranks first, the rest tie and fall back to id order.
	assert.Equal(t, []string{"2", "1", "3", "5", "6"}, ids(set.Records))

	assert.Equal(t, 7, set.Stats.CatalogTotal)
	assert.Equal(t, 1, set.Stats.Primary)
	assert.Equal(t, 4, set.Stats.Secondary)
	assert.Equal(t, 5, set.Stats.Returned)
	assert.InDelta(t, 28.6, set.Stats.ReductionPercent, 1e-9)
}

func TestByGlossary_CapKeepsMostRelevant(t *testing.T) {
	set := byGlossary(types.MaterialContext{ID: "m1"}, binderDesignation(), testCatalog(), glossary.Asphalt(), 2)

	require.Len(t, set.Records, 2)
	assert.Equal(t, "2", set.Records[0].ID, "layer-compatible record survives truncation first")
}

func TestByGlossary_ParseMissPassthrough(t *testing.T) {
	set := byGlossary(types.MaterialContext{ID: "m1"}, types.ParsedDesignation{}, testCatalog(), glossary.Asphalt(), 3)

	assert.True(t, set.FailOpen)
	assert.Equal(t, []string{"1", "2", "3"}, ids(set.Records), "unparsed input passes the catalog through in order, capped")
	assert.Equal(t, 3, set.Stats.Returned)
	assert.InDelta(t, 57.1, set.Stats.ReductionPercent, 1e-9)
}

func TestByGlossary_FailOpenOnEmptyResult(t *testing.T) {
	catalog := []types.EpdRecord{
		{ID: "4", Name: "Betonpflaster grau", Classification: "Pflaster"},
		{ID: "7", Name: "Zement CEM I", Classification: "Bindemittel"},
	}

	set := byGlossary(types.MaterialContext{ID: "m1"}, binderDesignation(), catalog, glossary.Asphalt(), 100)

	assert.True(t, set.FailOpen)
	assert.Equal(t, []string{"4", "7"}, ids(set.Records), "empty strict result falls open to the full catalog")
	assert.Equal(t, 2, set.Stats.Returned)
}

func TestByLabels(t *testing.T) {
	mctx := types.MaterialContext{ID: "m1"}

	set := byLabels(mctx, testCatalog(), []string{"Asphalt"}, 100)

	assert.False(t, set.FailOpen)
	assert.Equal(t, []string{"1", "2", "3", "5", "6"}, ids(set.Records))
	assert.Equal(t, 5, set.Stats.Returned)
}

func TestByLabels_NoHitFailOpen(t *testing.T) {
	set := byLabels(types.MaterialContext{ID: "m1"}, testCatalog(), []string{"Holzfaser"}, 100)

	assert.True(t, set.FailOpen)
	assert.Len(t, set.Records, 7)
}

func TestByLabels_EmptyLabelListPassthrough(t *testing.T) {
	set := byLabels(types.MaterialContext{ID: "m1"}, testCatalog(), nil, 100)

	assert.True(t, set.FailOpen)
	assert.Len(t, set.Records, 7)
}

func TestApply_StrategySelection(t *testing.T) {
	mctx := types.MaterialContext{ID: "m1"}
	parsed := binderDesignation()
	g := glossary.Asphalt()

	t.Run("glossary wins over labels", func(t *testing.T) {
		cfg := config.Default()
		cfg.UseGlossarFilter = true
		cfg.UseFilterLabels = true
		cfg.FilterLabels = []string{"Beton"}

		set := Apply(mctx, parsed, testCatalog(), g, cfg)

		assert.NotContains(t, ids(set.Records), "4", "glossary path must drop excluded records")
	})

	t.Run("both disabled passes catalog through", func(t *testing.T) {
		cfg := config.Default()
		cfg.UseGlossarFilter = false
		cfg.UseFilterLabels = false

		set := Apply(mctx, parsed, testCatalog(), g, cfg)

		assert.True(t, set.FailOpen)
		assert.Len(t, set.Records, 7)
	})
}

func TestCombined_CatalogOrderWithoutDuplicates(t *testing.T) {
	catalog := testCatalog()
	sets := []types.CandidateSet{
		{Records: []types.EpdRecord{catalog[4], catalog[1]}},
		{Records: []types.EpdRecord{catalog[2], catalog[1]}},
	}

	combined := Combined(catalog, sets)

	assert.Equal(t, []string{"2", "3", "5"}, ids(combined))
}

func TestCombined_KeepsDetailLoadedRecords(t *testing.T) {
	catalog := testCatalog()
	enriched := catalog[1]
	enriched.TechnicalDescription = "Asphaltbinder nach TL Asphalt-StB"
	enriched.DetailLoaded = true
	sets := []types.CandidateSet{{Records: []types.EpdRecord{enriched}}}

	combined := Combined(catalog, sets)

	require.Len(t, combined, 1)
	assert.True(t, combined[0].DetailLoaded)
	assert.Equal(t, "Asphaltbinder nach TL Asphalt-StB", combined[0].TechnicalDescription)
}

func TestRank_RelevanceThenID(t *testing.T) {
	ranked := Rank(testCatalog(), binderDesignation(), glossary.Asphalt())

	assert.Equal(t, []string{"2", "1", "3", "5", "6", "4", "7"}, ids(ranked))
}

func TestRelevanceScore_Components(t *testing.T) {
	g := glossary.Asphalt()
	parsed := binderDesignation()

	binder := relevanceScore("asphaltbinder für bundesstraßen straßenbau", parsed, g)
	surface := relevanceScore("asphaltdeckschicht nach tl asphalt straßenbau", parsed, g)
	foreign := relevanceScore("zement cem i bindemittel", parsed, g)

	assert.Greater(t, binder, surface, "layer term must dominate")
	assert.Greater(t, surface, foreign)
	assert.Equal(t, 0.0, foreign)
}

func TestRelevanceScore_PmB(t *testing.T) {
	g := glossary.Asphalt()
	parsed := binderDesignation()
	parsed.Binder = "PmB"

	plain := relevanceScore("asphaltbeton standard", parsed, g)
	modified := relevanceScore("asphaltbeton polymermodifiziert", parsed, g)

	assert.Greater(t, modified, plain)
}
