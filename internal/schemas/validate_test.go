package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBatchResponse_Valid(t *testing.T) {
	body := `{
		"results": [
			{"schicht": 1, "matches": [
				{"id": "101", "begruendung": "Asphalttragschicht passt zur Schicht", "confidence": 85}
			]},
			{"schicht": 2, "matches": []}
		]
	}`
	assert.NoError(t, ValidateBatchResponse(body))
}

func TestValidateBatchResponse_TolerantFieldShapes(t *testing.T) {
	// Integer ids, uuid instead of id, fractional confidence: all normalized
	// downstream, the schema must let them through.
	body := `{
		"results": [
			{"schicht": 1, "matches": [
				{"uuid": 7, "confidence": 0.9},
				{"id": 12, "confidence": "80"}
			]}
		]
	}`
	assert.NoError(t, ValidateBatchResponse(body))
}

func TestValidateBatchResponse_MissingResults(t *testing.T) {
	err := ValidateBatchResponse(`{"matches": []}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateBatchResponse_MatchWithoutIdentifier(t *testing.T) {
	body := `{"results": [{"schicht": 1, "matches": [{"begruendung": "ohne id", "confidence": 50}]}]}`
	err := ValidateBatchResponse(body)
	require.Error(t, err)
}

func TestValidateBatchResponse_LayerNumberBelowOne(t *testing.T) {
	body := `{"results": [{"schicht": 0, "matches": []}]}`
	err := ValidateBatchResponse(body)
	require.Error(t, err)
}

func TestValidateSingleResponse_Valid(t *testing.T) {
	body := `{"matches": [{"id": "7", "begruendung": "Gussasphalt", "confidence": 70}]}`
	assert.NoError(t, ValidateSingleResponse(body))
}

func TestValidateSingleResponse_MissingMatches(t *testing.T) {
	err := ValidateSingleResponse(`{"results": []}`)
	require.Error(t, err)
}

func TestValidateMatchReport_Valid(t *testing.T) {
	body := `{
		"material_id": "mat-001",
		"material_name": "AC 16 B S",
		"results": [
			{"epd_id": "2", "epd_name": "Asphaltbinder", "raw_confidence": 88, "corrected_confidence": 88}
		],
		"excluded": [
			{"epd_id": "4", "raw_confidence": 60, "corrected_confidence": 25, "excluded": true, "reason_codes": ["exclusion_term_cap"]}
		]
	}`
	assert.NoError(t, ValidateMatchReport(body))
}

func TestValidateMatchReport_ConfidenceOutOfRange(t *testing.T) {
	body := `{
		"material_id": "mat-001",
		"results": [{"epd_id": "2", "raw_confidence": 150, "corrected_confidence": 88}]
	}`
	err := ValidateMatchReport(body)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateMatchReport_FailedReport(t *testing.T) {
	body := `{
		"material_id": "mat-002",
		"results": [],
		"error": {"stage": "matching", "message": "model call timed out"}
	}`
	assert.NoError(t, ValidateMatchReport(body))
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "Asphaltdeckschicht"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"jahr": 2021}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "material_id", Message: "is required"},
			{Field: "results.0.raw_confidence", Message: "must be an integer"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "material_id")
	assert.Contains(t, errorMsg, "raw_confidence")
}
