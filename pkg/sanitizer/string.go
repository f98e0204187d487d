// Package sanitizer normalizes free-text input before it becomes part
// of a resident key. Resident keys are document IDs, so stray
// whitespace in a name would silently split one resident into two.
package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeName collapses whitespace in a resident's display name.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeUnit trims a wing/floor/side selector value.
func NormalizeUnit(unit string) string {
	return strings.TrimSpace(unit)
}
