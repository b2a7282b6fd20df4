// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock strips markdown code fences from a matcher reply. The model
// is instructed to answer with bare JSON but tends to wrap it in ```json
// fences anyway, sometimes after a short German preamble sentence, so the
// fence is searched anywhere in the text rather than only at the start.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if _, after, found := strings.Cut(text, "```json"); found {
		inner, _, closed := strings.Cut(after, "```")
		if !closed {
			inner = after
		}
		return strings.TrimSpace(inner)
	}

	if strings.HasPrefix(text, "```") {
		inner := strings.TrimPrefix(text, "```")
		// Drop a language identifier sitting on the opening fence line.
		if nl := strings.Index(inner, "\n"); nl >= 0 && isFenceLanguage(inner[:nl]) {
			inner = inner[nl+1:]
		}
		if idx := strings.LastIndex(inner, "```"); idx >= 0 {
			inner = inner[:idx]
		}
		return strings.TrimSpace(inner)
	}

	return text
}

func isFenceLanguage(line string) bool {
	return len(line) < 20 && !strings.ContainsAny(line, " {")
}

// ExtractJSONObject recovers a JSON object from text that failed to parse
// directly, taking everything from the first "{" to the last "}". When
// requiredKey is non-empty the extracted object must mention it, so chatty
// preambles containing stray braces do not produce a bogus document.
func ExtractJSONObject(text, requiredKey string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}

	obj := text[start : end+1]
	if requiredKey != "" && !strings.Contains(obj, `"`+requiredKey+`"`) {
		return "", false
	}
	return obj, true
}
