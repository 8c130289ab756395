package textmatch

import "strings"

// Trigrams returns the pg_trgm trigram set of an already normalized string.
// Each word is padded with two leading blanks and one trailing blank.
func Trigrams(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(normalized) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Similarity is the trigram similarity of two raw strings in [0, 1]: shared
// trigrams over the union of both trigram sets. Higher is more similar and
// the result depends only on the inputs.
func Similarity(a, b string) float64 {
	return NormalizedSimilarity(Normalize(a), Normalize(b))
}

// NormalizedSimilarity is Similarity for inputs that already went through
// Normalize.
func NormalizedSimilarity(a, b string) float64 {
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}
