package pushover

import "unicode/utf8"

// Character limits enforced by the service.
const (
	TitleLimit    = 250
	MessageLimit  = 1024
	URLLimit      = 250
	URLTitleLimit = 100
)

const ellipsis = "..."

// Trim shortens text to at most limit characters. Text that does not fit
// keeps its first limit-3 characters followed by "...".
func Trim(text string, limit int) string {
	if text == "" {
		return ""
	}
	if limit < 0 {
		limit = 0
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
