package types

import "strings"

// ClipText trims surrounding whitespace and caps the result at maxRunes runes.
// A non-positive maxRunes only trims.
func ClipText(input string, maxRunes int) string {
	trimmed := strings.TrimSpace(input)
	if maxRunes <= 0 {
		return trimmed
	}
	count := 0
	for i := range trimmed {
		if count == maxRunes {
			return strings.TrimSpace(trimmed[:i])
		}
		count++
	}
	return trimmed
}
