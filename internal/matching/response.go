package matching

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/epd-matcher/internal/llm"
	"github.com/jonathan/epd-matcher/internal/schemas"
	"github.com/jonathan/epd-matcher/internal/types"
)

// defaultConfidence fills in when the matcher returns a match without a
// usable score.
const defaultConfidence = 50

const (
	batchKey  = "results"
	singleKey = "matches"
)

// wireID tolerates identifiers sent as strings or bare numbers.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*w = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = wireID(strings.TrimSpace(s))
		return nil
	}
	*w = wireID(string(data))
	return nil
}

type wireMatch struct {
	ID          wireID          `json:"id"`
	UUID        wireID          `json:"uuid"`
	Begruendung string          `json:"begruendung"`
	Confidence  json.RawMessage `json:"confidence"`
}

// identifier prefers the id field, falling back to uuid.
func (m wireMatch) identifier() string {
	if m.ID != "" {
		return string(m.ID)
	}
	return string(m.UUID)
}

type wireBatchResponse struct {
	Results []wireLayerResult `json:"results"`
}

// wireLayerResult carries schicht as float64: the schema admits integral
// floats like 2.0, which an int field would reject.
type wireLayerResult struct {
	Schicht float64     `json:"schicht"`
	Matches []wireMatch `json:"matches"`
}

type wireSingleResponse struct {
	Matches []wireMatch `json:"matches"`
}

// ParseBatchResponse decodes a batch matcher response into per-layer result
// slices, indexed by the prompt's layer numbering. Layers the response does
// not cover come back empty.
func ParseBatchResponse(raw string, layerCount int) ([][]types.MatchResult, error) {
	doc, err := recoverDocument(raw, batchKey, schemas.ValidateBatchResponse)
	if err != nil {
		return nil, err
	}

	var resp wireBatchResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, &ParseError{Message: "failed to decode batch response", Cause: err}
	}

	perLayer := make([][]types.MatchResult, layerCount)
	for i := range perLayer {
		perLayer[i] = convertMatches(layerMatches(resp.Results, i+1))
	}
	return perLayer, nil
}

// layerMatches returns the first result block for the given layer number.
func layerMatches(results []wireLayerResult, layer int) []wireMatch {
	for _, r := range results {
		if int(r.Schicht) == layer {
			return r.Matches
		}
	}
	return nil
}

// ParseSingleResponse decodes a single-material matcher response.
func ParseSingleResponse(raw string) ([]types.MatchResult, error) {
	doc, err := recoverDocument(raw, singleKey, schemas.ValidateSingleResponse)
	if err != nil {
		return nil, err
	}

	var resp wireSingleResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, &ParseError{Message: "failed to decode response", Cause: err}
	}
	return convertMatches(resp.Matches), nil
}

// recoverDocument strips code fences, validates against the response schema,
// and on failure tries to cut the JSON object out of surrounding chatter
// before giving up.
func recoverDocument(raw, requiredKey string, validate func(string) error) (string, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return "", &ParseError{Message: "empty response"}
	}

	firstErr := validate(cleaned)
	if firstErr == nil {
		return cleaned, nil
	}

	if obj, ok := llm.ExtractJSONObject(cleaned, requiredKey); ok {
		if err := validate(obj); err == nil {
			return obj, nil
		}
	}
	return "", &ParseError{Message: "response failed schema validation", Cause: firstErr}
}

func convertMatches(matches []wireMatch) []types.MatchResult {
	results := make([]types.MatchResult, 0, len(matches))
	for _, m := range matches {
		id := m.identifier()
		if id == "" {
			continue
		}
		conf, ok := NormalizeConfidence(m.Confidence)
		if !ok {
			conf = defaultConfidence
		}
		results = append(results, types.MatchResult{
			EpdID:               id,
			RawConfidence:       conf,
			CorrectedConfidence: conf,
			Rationale:           m.Begruendung,
		})
	}
	return results
}

// NormalizeConfidence turns a raw confidence token into a 0 to 100 integer.
// Fractions strictly between 0 and 1 are read as ratios and scaled, string
// values are parsed, and everything else is clamped. The second return is
// false when no numeric value could be read.
func NormalizeConfidence(raw json.RawMessage) (int, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return 0, false
		}
		trimmed = strings.TrimSpace(s)
		if trimmed == "" {
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	if v > 0 && v < 1 {
		v *= 100
	}
	n := int(math.Round(v))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, true
}
