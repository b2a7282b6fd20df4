package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jonathan/epd-matcher/internal/types"
)

// flexString absorbs fields the service sends sometimes as strings and
// sometimes as numbers (ids, reference years).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	*s = flexString(data)
	return nil
}

// datasetRow is the wire shape of one /api/Datasets row. List responses fill
// the identity fields; the detail endpoint adds the long-text fields.
type datasetRow struct {
	UUID            flexString `json:"uuid"`
	ID              flexString `json:"id"`
	Name            string     `json:"name"`
	Klassifizierung string     `json:"klassifizierung"`
	Referenzjahr    flexString `json:"referenzjahr"`
	Gueltigkeit     flexString `json:"gueltigkeit"`

	TechnischeBeschreibung string     `json:"technischeBeschreibung"`
	Anmerkungen            string     `json:"anmerkungen"`
	Anwendungsgebiet       string     `json:"anwendungsgebiet"`
	Anwendungshinweis      string     `json:"anwendungshinweis"`
	Gliederungsnummer      flexString `json:"gliederungsnummer"`
	BauDatRef              flexString `json:"bauDatRef"`
}

// identity prefers uuid over id; the service interleaves both.
func (r datasetRow) identity() string {
	if u := strings.TrimSpace(string(r.UUID)); u != "" {
		return u
	}
	return strings.TrimSpace(string(r.ID))
}

// listRecord projects the row onto the fields list responses carry.
func (r datasetRow) listRecord() types.EpdRecord {
	return types.EpdRecord{
		ID:             r.identity(),
		Name:           r.Name,
		Classification: r.Klassifizierung,
		RefYear:        string(r.Referenzjahr),
		Validity:       string(r.Gueltigkeit),
	}
}

// detailRecord projects the full row, reducing the long-text fields to plain
// text.
func (r datasetRow) detailRecord() types.EpdRecord {
	record := r.listRecord()
	record.TechnicalDescription = StripHTML(r.TechnischeBeschreibung)
	record.Remarks = StripHTML(r.Anmerkungen)
	record.ApplicationArea = StripHTML(r.Anwendungsgebiet)
	record.ApplicationNote = StripHTML(r.Anwendungshinweis)
	record.OutlineNumber = string(r.Gliederungsnummer)
	record.BauDatRef = string(r.BauDatRef)
	record.DetailLoaded = true
	return record
}

// decodeRows supports both list body shapes: a bare array and an object
// wrapping the array under "items".
func decodeRows(body []byte) ([]datasetRow, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []datasetRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var envelope struct {
		Items []datasetRow `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// decodeDetail accepts both the object and the single-element list shape of
// detail bodies. A nil row means the response was an empty list.
func decodeDetail(body []byte) (*datasetRow, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []datasetRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return &rows[0], nil
	}

	var row datasetRow
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// decodeCount tolerates every count body shape the service is known to send:
// a bare integer, {"count"}, {"total"}, an items envelope, or a full list.
func decodeCount(body []byte) int {
	var n int
	if err := json.Unmarshal(body, &n); err == nil {
		return n
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"count", "total"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var v int
			if err := json.Unmarshal(raw, &v); err == nil {
				return v
			}
		}
		if raw, ok := obj["items"]; ok {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err == nil {
				return len(items)
			}
		}
		return 0
	}

	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return len(list)
	}
	return 0
}
