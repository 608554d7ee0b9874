package validators

import (
	"strings"
	"unicode"
)

// Free-text limits shared by the note fields.
const (
	MaxNoteLength     = 1000
	MaxResponseLength = 4000
)

// SanitizeNote trims free text, drops control characters other than newlines
// and truncates to maxRunes.
func SanitizeNote(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(input))
	if maxRunes > 0 {
		if runes := []rune(cleaned); len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return cleaned
}
