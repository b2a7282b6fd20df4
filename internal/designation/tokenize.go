package designation

import (
	"strings"
	"unicode"

	"github.com/jonathan/epd-matcher/internal/glossary"
)

// Tokenize splits a designation code into grammar tokens. Fields are split on
// whitespace and the grammar's delimiter characters, then on letter/digit
// boundaries so compact codes like "AC16BS" yield the same token sequence as
// "AC 16 BS".
func Tokenize(code string, g glossary.Grammar) []string {
	fields := strings.FieldsFunc(code, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(g.Delimiters, r)
	})

	var tokens []string
	for _, field := range fields {
		tokens = append(tokens, splitAlphaNum(field)...)
	}
	return tokens
}

// splitAlphaNum cuts a field at every transition between letters and digits.
func splitAlphaNum(field string) []string {
	var parts []string
	runes := []rune(field)
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsDigit(runes[i]) != unicode.IsDigit(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
