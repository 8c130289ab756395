// Package textmatch implements the name-similarity capability used by the
// catalog stores and the query resolver: accent and case folding, trigram
// similarity with pg_trgm semantics, and a folded substring test.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for matching: accents stripped, lower-cased, apostrophes
// dropped, every other non-alphanumeric rune treated as a word break and
// whitespace collapsed. "Joe's Café" becomes "joes cafe".
func Normalize(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case r == '\'' || r == '’' || r == '`':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// EffectiveLength is the number of runes left in a query after trimming.
func EffectiveLength(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
