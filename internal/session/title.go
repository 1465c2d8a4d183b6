package session

import (
	"strings"
	"unicode"
)

// MaxTitleRunes caps auto-derived titles.
const MaxTitleRunes = 40

// DeriveTitle builds a session title from the first user message: punctuation
// removed, whitespace collapsed, cut to MaxTitleRunes. Returns "" when nothing
// printable is left.
func DeriveTitle(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, text)
	words := strings.Fields(stripped)
	title := strings.Join(words, " ")

	runes := []rune(title)
	if len(runes) <= MaxTitleRunes {
		return title
	}
	cut := runes[:MaxTitleRunes]
	// Prefer a word boundary when it doesn't throw away more than half.
	for i := len(cut) - 1; i >= MaxTitleRunes/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimSpace(string(cut))
}
