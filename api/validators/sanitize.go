package validators

import "strings"

// SanitizeString trims input and caps it at maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	if r := []rune(trimmed); len(r) > maxLen {
		return string(r[:maxLen])
	}
	return trimmed
}
