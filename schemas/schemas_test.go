package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

var shipped = []string{BatchResponse, SingleResponse, MatchReport}

func TestShippedSchemas_ValidJSON(t *testing.T) {
	for _, name := range shipped {
		t.Run(name, func(t *testing.T) {
			data, err := Read(name)
			require.NoError(t, err, "schema must be embedded")

			var v interface{}
			assert.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON")
		})
	}
}

func TestShippedSchemas_Compile(t *testing.T) {
	for _, name := range shipped {
		t.Run(name, func(t *testing.T) {
			data, err := Read(name)
			require.NoError(t, err)

			_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			assert.NoError(t, err, "schema should compile")
		})
	}
}

func TestShippedSchemas_DeclareDraft(t *testing.T) {
	for _, name := range shipped {
		t.Run(name, func(t *testing.T) {
			data, err := Read(name)
			require.NoError(t, err)

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &schemaObj))
			assert.Contains(t, schemaObj, "$schema")
			assert.Equal(t, "object", schemaObj["type"])
		})
	}
}

func TestRead_UnknownName(t *testing.T) {
	_, err := Read("missing.schema.json")
	assert.Error(t, err)
}
