package matching

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchResponse_AssignsLayers(t *testing.T) {
	raw := `{
		"results": [
			{"schicht": 2, "matches": [{"id": "20", "begruendung": "Binder passt", "confidence": 72}]},
			{"schicht": 1, "matches": [
				{"id": "10", "begruendung": "Tragschicht passt", "confidence": 91},
				{"id": "11", "begruendung": "verwandt", "confidence": 55}
			]}
		]
	}`

	perLayer, err := ParseBatchResponse(raw, 2)
	require.NoError(t, err)
	require.Len(t, perLayer, 2)

	require.Len(t, perLayer[0], 2)
	assert.Equal(t, "10", perLayer[0][0].EpdID)
	assert.Equal(t, 91, perLayer[0][0].RawConfidence)
	assert.Equal(t, 91, perLayer[0][0].CorrectedConfidence)
	assert.Equal(t, "Tragschicht passt", perLayer[0][0].Rationale)

	require.Len(t, perLayer[1], 1)
	assert.Equal(t, "20", perLayer[1][0].EpdID)
}

func TestParseBatchResponse_MissingLayerComesBackEmpty(t *testing.T) {
	raw := `{"results": [{"schicht": 1, "matches": [{"id": "10", "confidence": 80}]}]}`

	perLayer, err := ParseBatchResponse(raw, 3)
	require.NoError(t, err)
	require.Len(t, perLayer, 3)
	assert.Len(t, perLayer[0], 1)
	assert.Empty(t, perLayer[1])
	assert.Empty(t, perLayer[2])
}

func TestParseBatchResponse_IntegralFloatLayer(t *testing.T) {
	raw := `{"results": [{"schicht": 2.0, "matches": [{"id": "20", "confidence": 60}]}]}`

	perLayer, err := ParseBatchResponse(raw, 2)
	require.NoError(t, err)
	assert.Empty(t, perLayer[0])
	require.Len(t, perLayer[1], 1)
	assert.Equal(t, "20", perLayer[1][0].EpdID)
}

func TestParseBatchResponse_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"results\": [{\"schicht\": 1, \"matches\": [{\"id\": \"10\", \"confidence\": 85}]}]}\n```"

	perLayer, err := ParseBatchResponse(raw, 1)
	require.NoError(t, err)
	require.Len(t, perLayer[0], 1)
	assert.Equal(t, "10", perLayer[0][0].EpdID)
}

func TestParseBatchResponse_RecoversFromPreamble(t *testing.T) {
	raw := `Hier sind die Ergebnisse der Analyse:
{"results": [{"schicht": 1, "matches": [{"id": "10", "confidence": 85}]}]}`

	perLayer, err := ParseBatchResponse(raw, 1)
	require.NoError(t, err)
	require.Len(t, perLayer[0], 1)
	assert.Equal(t, "10", perLayer[0][0].EpdID)
}

func TestParseBatchResponse_NumericAndUUIDIdentifiers(t *testing.T) {
	raw := `{"results": [{"schicht": 1, "matches": [
		{"id": 123, "confidence": 80},
		{"uuid": "abc-def", "confidence": 70},
		{"id": "77", "uuid": "ignored", "confidence": 60}
	]}]}`

	perLayer, err := ParseBatchResponse(raw, 1)
	require.NoError(t, err)
	require.Len(t, perLayer[0], 3)
	assert.Equal(t, "123", perLayer[0][0].EpdID)
	assert.Equal(t, "abc-def", perLayer[0][1].EpdID)
	assert.Equal(t, "77", perLayer[0][2].EpdID)
}

func TestParseBatchResponse_SkipsEmptyIdentifier(t *testing.T) {
	raw := `{"results": [{"schicht": 1, "matches": [
		{"id": "  ", "confidence": 80},
		{"id": "10", "confidence": 70}
	]}]}`

	perLayer, err := ParseBatchResponse(raw, 1)
	require.NoError(t, err)
	require.Len(t, perLayer[0], 1)
	assert.Equal(t, "10", perLayer[0][0].EpdID)
}

func TestParseBatchResponse_DefaultsMissingConfidence(t *testing.T) {
	raw := `{"results": [{"schicht": 1, "matches": [
		{"id": "10"},
		{"id": "11", "confidence": null}
	]}]}`

	perLayer, err := ParseBatchResponse(raw, 1)
	require.NoError(t, err)
	require.Len(t, perLayer[0], 2)
	assert.Equal(t, defaultConfidence, perLayer[0][0].RawConfidence)
	assert.Equal(t, defaultConfidence, perLayer[0][1].RawConfidence)
}

func TestParseBatchResponse_EmptyResponse(t *testing.T) {
	_, err := ParseBatchResponse("   ", 1)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Message, "empty response")
}

func TestParseBatchResponse_InvalidDocument(t *testing.T) {
	_, err := ParseBatchResponse(`{"answer": 42}`, 1)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Message, "schema validation")
	assert.Error(t, errors.Unwrap(err))
}

func TestParseSingleResponse_Valid(t *testing.T) {
	raw := `{"matches": [
		{"id": "10", "begruendung": "gut", "confidence": 88},
		{"id": "11", "begruendung": "schwach", "confidence": 35}
	]}`

	results, err := ParseSingleResponse(raw)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "10", results[0].EpdID)
	assert.Equal(t, 88, results[0].RawConfidence)
	assert.Equal(t, "schwach", results[1].Rationale)
}

func TestParseSingleResponse_EmptyMatches(t *testing.T) {
	results, err := ParseSingleResponse(`{"matches": []}`)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParseSingleResponse_RejectsBatchShape(t *testing.T) {
	_, err := ParseSingleResponse(`{"results": [{"schicht": 1, "matches": []}]}`)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
		ok   bool
	}{
		{"integer", `85`, 85, true},
		{"float", `72.4`, 72, true},
		{"rounds up", `72.5`, 73, true},
		{"fraction scales", `0.85`, 85, true},
		{"zero stays", `0`, 0, true},
		{"one stays", `1`, 1, true},
		{"clamps high", `140`, 100, true},
		{"clamps low", `-5`, 0, true},
		{"string number", `"85"`, 85, true},
		{"string fraction", `"0.7"`, 70, true},
		{"padded string", `" 60 "`, 60, true},
		{"null", `null`, 0, false},
		{"empty", ``, 0, false},
		{"empty string", `""`, 0, false},
		{"garbage string", `"hoch"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeConfidence(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
