package explain

import (
	"testing"
	"time"

	"stillopen-api/internal/classifier"
	"stillopen-api/internal/features"
	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func joesDiner() models.Place {
	return models.Place{
		PlaceID:     "p-1",
		Name:        "Joe's Diner",
		Category:    "diner",
		Location:    &geo.Point{Lat: 40.7128, Lon: -74.006},
		Metadata:    models.Metadata{HasWebsite: boolPtr(false), Socials: []string{"https://instagram.com/joes"}},
		LastUpdated: now.AddDate(0, 0, -400),
	}
}

func contributions(v features.Vector, values map[string]float64) []classifier.Contribution {
	out := make([]classifier.Contribution, len(v.Schema.Features))
	for i, name := range v.Schema.Features {
		out[i] = classifier.Contribution{Feature: name, Index: i, Value: values[name]}
	}
	return out
}

func TestGenerator_Explain(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	place := joesDiner()
	v := pipeline.Extract(place, now)
	g := New(Options{})

	tests := []struct {
		name     string
		values   map[string]float64
		label    models.Status
		expected []string
	}{
		{
			name: "ranked by magnitude",
			values: map[string]float64{
				features.FeatureHasWebsite:      -0.8,
				features.FeatureDaysSinceUpdate: -1.2,
				features.FeatureHasSocial:       0.3,
			},
			label: models.StatusClosed,
			expected: []string{
				"Last updated 400 days ago, lowering confidence of being open",
				"No website found, lowering confidence of being open",
				"Social media presence detected, supporting an OPEN signal",
			},
		},
		{
			name: "ties keep schema order",
			values: map[string]float64{
				features.FeatureHasSocial:  0.5,
				features.FeatureHasWebsite: -0.5,
			},
			label: models.StatusClosed,
			expected: []string{
				"No website found, lowering confidence of being open",
				"Social media presence detected, supporting an OPEN signal",
			},
		},
		{
			name: "related features share one sentence",
			values: map[string]float64{
				features.FeatureLatitude:  0.2,
				features.FeatureLongitude: -0.1,
			},
			label:    models.StatusOpen,
			expected: []string{"Located at 40.7128, -74.0060, supporting an OPEN signal"},
		},
		{
			name:     "sector feature",
			values:   map[string]float64{features.CategoryPrefix + "food_dining": 0.4},
			label:    models.StatusOpen,
			expected: []string{"Categorized as food & dining, supporting an OPEN signal"},
		},
		{
			name:   "negligible contributions fall back to rules",
			values: map[string]float64{features.FeatureHasWebsite: 1e-5},
			label:  models.StatusOpen,
			expected: []string{
				"Model predicts this place is likely open.",
				"Social media presence detected.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Explain(place, v, contributions(v, tt.values), tt.label)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGenerator_NoContributions(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	place := models.Place{
		PlaceID:     "p-2",
		Name:        "Corner Shop",
		Metadata:    models.Metadata{HasWebsite: boolPtr(true)},
		LastUpdated: now.AddDate(0, 0, -3),
	}
	v := pipeline.Extract(place, now)

	got := New(Options{}).Explain(place, v, nil, models.StatusOpen)
	assert.Equal(t, []string{
		"Model predicts this place is likely open.",
		"Website is active.",
		"Recent data updates found.",
	}, got)

	got = New(Options{}).Explain(models.Place{}, features.Vector{}, nil, models.StatusClosed)
	assert.Equal(t, []string{"Model predicts this place is likely closed."}, got)
}

func TestGenerator_RespectsCap(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	place := joesDiner()
	v := pipeline.Extract(place, now)

	values := make(map[string]float64)
	for i, name := range v.Schema.Features {
		values[name] = float64(i+1) / 10
	}

	for _, limit := range []int{1, 3, 5} {
		got := New(Options{MaxItems: limit}).Explain(place, v, contributions(v, values), models.StatusOpen)
		require.Len(t, got, limit)
		assert.NotEmpty(t, got[0])
	}

	got := New(Options{MaxItems: 1}).Explain(place, features.Vector{Schema: v.Schema, Values: v.Values}, nil, models.StatusOpen)
	assert.Len(t, got, 1)
}
