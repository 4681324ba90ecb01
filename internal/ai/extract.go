package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSONArray returns the first syntactically valid [...] span in
// the response, scanning from the first opening bracket and shrinking
// from the last closing one. Service responses routinely surround the
// payload with prose, so this never assumes the whole string parses.
func ExtractJSONArray(text string) (string, bool) {
	return extractSpan(text, '[', ']')
}

// ExtractJSONObject returns the first syntactically valid {...} span.
func ExtractJSONObject(text string) (string, bool) {
	return extractSpan(text, '{', '}')
}

func extractSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	for end := len(text); end > start; end-- {
		if text[end-1] != close {
			continue
		}
		candidate := text[start:end]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}
