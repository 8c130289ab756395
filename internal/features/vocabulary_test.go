package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabulary_SectorOf(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		category string
		expected string
	}{
		{"restaurant", "food_dining"},
		{"Coffee_Shop", "food_dining"},
		{"boutique_hotel", "hospitality"},
		{"florist", "retail"},
		{"hotel", "hospitality"},
		{"dentist", "health_community"},
		{"gas_station", "automotive"},
		{"hair_salon", "beauty_fitness"},
		{"observatory", OtherSector},
		{"", OtherSector},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.SectorOf(tt.category))
		})
	}
}

func TestVocabulary_Frequency(t *testing.T) {
	v := DefaultVocabulary()
	assert.Equal(t, 0.0712, v.Frequency("Restaurant"))
	assert.Equal(t, 0.0, v.Frequency("observatory"))
}

func TestParseVocabulary_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no version", "sectors: [{name: a}]"},
		{"no sectors", "version: v1"},
		{"duplicate sector", "version: v1\nsectors: [{name: a}, {name: a}]"},
		{"reserved other", "version: v1\nsectors: [{name: other}]"},
		{"not yaml", "version: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVocabulary([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSchema_Compatible(t *testing.T) {
	base := NewSchema(DefaultVocabulary())

	renamed := Schema{Version: base.Version, Features: append([]string(nil), base.Features...)}
	renamed.Features[3] = "has_fax"
	assert.Error(t, base.Compatible(renamed))

	short := Schema{Version: base.Version, Features: base.Features[:10]}
	assert.Error(t, base.Compatible(short))

	otherVersion := Schema{Version: "stillopen-features/v0", Features: base.Features}
	assert.Error(t, base.Compatible(otherVersion))

	require.NoError(t, base.Compatible(base))
	assert.Equal(t, base.Fingerprint(), NewSchema(DefaultVocabulary()).Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), renamed.Fingerprint())
	assert.Len(t, base.Fingerprint(), 16)
}
