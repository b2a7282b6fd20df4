package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_BatchTask(t *testing.T) {
	prompt, err := Get("batch-task")
	require.NoError(t, err)
	assert.Contains(t, prompt, "AUFGABE")
	assert.Contains(t, prompt, "{{.MaxResults}}")
	assert.Contains(t, prompt, "Ausschluss-Begriffe (Confidence < 20)")
	assert.Contains(t, prompt, `"schicht": 1`)
}

func TestGet_SingleTask(t *testing.T) {
	prompt, err := Get("single-task")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.MaterialName}}")
	assert.Contains(t, prompt, `"matches"`)
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	assert.NotPanics(t, func() {
		prompt := MustGet("single-hint")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	template := `Finde die {{.MaxResults}} besten EPD-Matches für: "{{.MaterialName}}"`
	data := map[string]string{
		"MaxResults":   "10",
		"MaterialName": "AC 16 B S",
	}

	result := Format(template, data)
	assert.Equal(t, `Finde die 10 besten EPD-Matches für: "AC 16 B S"`, result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "Keine Platzhalter hier"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Schicht {{.Index}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestKeys(t *testing.T) {
	keys, err := Keys()
	require.NoError(t, err)
	assert.Contains(t, keys, "batch-task")
	assert.Contains(t, keys, "single-task")
	assert.Contains(t, keys, "single-hint")
}
