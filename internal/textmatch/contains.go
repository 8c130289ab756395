package textmatch

import (
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initOnce sync.Once

// Contains reports whether the normalized query occurs in the normalized
// text. It is the store-independent equivalent of a case- and
// accent-insensitive ILIKE '%query%'.
func Contains(normalizedText, normalizedQuery string) bool {
	if normalizedQuery == "" {
		return false
	}
	initOnce.Do(func() { algo.Init("default") })

	chars := util.ToChars([]byte(normalizedText))
	result, _ := algo.ExactMatchNaive(false, true, true, &chars, []rune(normalizedQuery), false, nil)
	return result.Start >= 0
}

// SubstringBonus lifts names that contain the query outright above names
// that merely share trigrams with it.
const SubstringBonus = 0.25

// TextScore is the textual relevance of a name: its trigram similarity plus
// SubstringBonus when it contains the query, capped at 1.
func TextScore(similarity float64, contains bool) float64 {
	if contains {
		similarity += SubstringBonus
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
