package models

import (
	"time"

	"stillopen-api/internal/geo"
)

// SearchQuery is a free-text place lookup with an optional location hint.
type SearchQuery struct {
	Text     string
	Limit    int
	Near     *geo.Point
	RadiusKm float64
}

// NameQuery is what the resolver asks of a catalog store: places whose name
// is similar to Text (already normalized), optionally within RadiusKm of
// Center.
type NameQuery struct {
	Text      string
	Limit     int
	Threshold float64
	Center    *geo.Point
	RadiusKm  float64
}

// ScoredPlace is a store hit with the store's own similarity score.
type ScoredPlace struct {
	Place      Place
	Similarity float64
}

// SearchCandidate is one ranked search hit. Relevance orders the list and is
// not part of the boundary payload.
type SearchCandidate struct {
	PlaceID     string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Status      Status    `json:"status"`
	Confidence  *float64  `json:"confidence"`
	Relevance   float64   `json:"-"`
	LastUpdated time.Time `json:"-"`
}
