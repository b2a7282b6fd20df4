package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/epd-matcher/internal/types"
)

const groupsInput = `{
  "Projekt": "A7 Deckenerneuerung",
  "Gruppen": [
    {"MATERIAL": "AC 16 B S", "NAME": "Binderschicht", "Volumen": "12,5", "GUID": ["g1", "g2"]},
    {"MATERIAL": "AC 32 T N"}
  ]
}`

func TestDecodeGroups_ParsesItems(t *testing.T) {
	doc, err := DecodeGroups([]byte(groupsInput))
	require.NoError(t, err)
	require.Len(t, doc.Items, 2)

	first := doc.Items[0]
	assert.Equal(t, "AC 16 B S", first.Material)
	assert.Equal(t, "Binderschicht", first.Name)
	require.NotNil(t, first.Volume)
	assert.InDelta(t, 12.5, float64(*first.Volume), 0.001, "German decimal comma accepted")
	assert.Equal(t, []string{"g1", "g2"}, first.GUIDs)

	second := doc.Items[1]
	assert.Equal(t, "AC 32 T N", second.Material)
	assert.Empty(t, second.Name)
	assert.Nil(t, second.Volume)
}

func TestDecodeGroups_MissingGruppen(t *testing.T) {
	_, err := DecodeGroups([]byte(`{"Projekt": "leer"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gruppen")
}

func TestDecodeGroups_GruppenNotArray(t *testing.T) {
	_, err := DecodeGroups([]byte(`{"Gruppen": {"MATERIAL": "AC"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an array")
}

func TestDecodeGroups_MalformedInput(t *testing.T) {
	_, err := DecodeGroups([]byte(`{"Gruppen": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse input JSON")
}

func TestEncode_AttachesResultsAndEchoesInput(t *testing.T) {
	doc, err := DecodeGroups([]byte(groupsInput))
	require.NoError(t, err)

	reports := []types.MaterialMatchReport{
		{
			MaterialID: "g1",
			Results: []types.MatchResult{
				{EpdID: "10", RawConfidence: 90, CorrectedConfidence: 90},
				{EpdID: "20", RawConfidence: 60, CorrectedConfidence: 55},
			},
		},
		{
			MaterialID: "material-002",
			Results:    []types.MatchResult{},
		},
	}

	out, err := doc.Encode(reports)
	require.NoError(t, err)

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))

	assert.Equal(t, "A7 Deckenerneuerung", round["Projekt"], "sibling fields echoed")

	groups, ok := round["Gruppen"].([]any)
	require.True(t, ok)
	require.Len(t, groups, 2)

	first, ok := groups[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AC 16 B S", first["MATERIAL"], "input fields echoed")
	assert.Equal(t, "12,5", first["Volumen"], "original volume format kept")
	assert.Equal(t, []any{"10", "20"}, first["id"])

	confidence, ok := first["id_confidence"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(90), confidence["10"])
	assert.Equal(t, float64(55), confidence["20"])

	second, ok := groups[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{}, second["id"], "no matches still writes an empty list")
	assert.Equal(t, map[string]any{}, second["id_confidence"])
}

func TestEncode_ReportCountMismatch(t *testing.T) {
	doc, err := DecodeGroups([]byte(groupsInput))
	require.NoError(t, err)

	_, err = doc.Encode([]types.MaterialMatchReport{{MaterialID: "g1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match group count")
}
