package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "apostrophe dropped", input: "Joe's Diner", expected: "joes diner"},
		{name: "accents folded", input: "Café Crème", expected: "cafe creme"},
		{name: "punctuation breaks words", input: "  A&W  -- Root Beer!! ", expected: "a w root beer"},
		{name: "typographic apostrophe", input: "McDonald’s", expected: "mcdonalds"},
		{name: "blank", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestEffectiveLength(t *testing.T) {
	assert.Equal(t, 0, EffectiveLength(""))
	assert.Equal(t, 0, EffectiveLength(" \t "))
	assert.Equal(t, 1, EffectiveLength(" a "))
	assert.Equal(t, 2, EffectiveLength("é1"))
}

func TestTrigrams(t *testing.T) {
	got := Trigrams("cat")
	assert.Equal(t, map[string]struct{}{
		"  c": {}, " ca": {}, "cat": {}, "at ": {},
	}, got)
	assert.Empty(t, Trigrams(""))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Joe's Diner", "joes diner"))
	assert.Equal(t, 0.0, Similarity("", "joes diner"))
	assert.Equal(t, 0.0, Similarity("xyz", "abc"))

	misspelled := Similarity("Joe's Diner", "joes dinr")
	assert.InDelta(t, 8.0/13.0, misspelled, 1e-9)
	assert.Greater(t, misspelled, Similarity("Jade Garden", "joes dinr"))

	assert.Equal(t, Similarity("Café Luna", "cafe lun"), Similarity("Café Luna", "cafe lun"))
	assert.Equal(t, Similarity("a b", "b a"), Similarity("b a", "a b"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("joes diner", "diner"))
	assert.True(t, Contains("joes diner", "s din"))
	assert.False(t, Contains("joes diner", "dinr"))
	assert.False(t, Contains("joes diner", ""))
}

func TestTextScore(t *testing.T) {
	assert.Equal(t, 0.5, TextScore(0.5, false))
	assert.Equal(t, 0.75, TextScore(0.5, true))
	assert.Equal(t, 1.0, TextScore(0.9, true))
}
