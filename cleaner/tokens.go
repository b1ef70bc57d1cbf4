package cleaner

import (
	"strings"
	"unicode/utf8"
)

// truncationMarker is appended to markdown cut at the token budget.
const truncationMarker = "\n\n…"

// EstimateTokens gives a fast token estimate: rune count / 3. It slightly
// over-counts English and under-counts Urdu script, which averages out on the
// mixed pages this service reads.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}

// TruncateTokens cuts text to roughly maxTokens, preferring the last line
// break inside the budget. It reports whether anything was cut.
func TruncateTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text, false
	}

	limit := maxTokens * 3
	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, '\n'); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n") + truncationMarker, true
}
