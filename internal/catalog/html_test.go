package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML_RemovesMarkup(t *testing.T) {
	text := StripHTML(`<p>Asphalttragschicht nach <b>TL Asphalt-StB</b></p><ul><li>AC 22 T</li></ul>`)
	assert.Contains(t, text, "Asphalttragschicht nach TL Asphalt-StB")
	assert.Contains(t, text, "AC 22 T")
	assert.NotContains(t, text, "<")
}

func TestStripHTML_DropsScriptAndStyle(t *testing.T) {
	text := StripHTML(`<div>Bitumenemulsion<script>alert(1)</script><style>p{}</style></div>`)
	assert.Equal(t, "Bitumenemulsion", text)
}

func TestStripHTML_PlainTextPassesThrough(t *testing.T) {
	text := StripHTML("Splittmastixasphalt SMA 8 S\n\n  mit Faserstoffen  ")
	assert.Equal(t, "Splittmastixasphalt SMA 8 S\nmit Faserstoffen", text)
}

func TestStripHTML_Empty(t *testing.T) {
	assert.Equal(t, "", StripHTML(""))
}
