package models

import (
	"fmt"
	"strings"
	"time"

	"stillopen-api/internal/geo"
)

// Place is one catalog entry. Rows are created by the importer and are
// read-only to the engine.
type Place struct {
	PlaceID     string     `json:"place_id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Location    *geo.Point `json:"location,omitempty"`
	Source      string     `json:"source"`
	Metadata    Metadata   `json:"metadata"`
	LastUpdated time.Time  `json:"last_updated"`
}

// ValidLocation returns the place's coordinate when it is present and within
// WGS-84 ranges.
func (p Place) ValidLocation() (geo.Point, bool) {
	if p.Location == nil || !p.Location.Valid() {
		return geo.Point{}, false
	}
	return *p.Location, true
}

// AddressSummary renders the short location line shown next to a place:
// "city, state" when the metadata carries them, the coordinate otherwise.
func (p Place) AddressSummary() string {
	addr := p.Metadata.PostalAddress()
	parts := make([]string, 0, 2)
	for _, s := range []string{addr.Locality, addr.Region} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if loc, ok := p.ValidLocation(); ok {
		return fmt.Sprintf("Lon: %.5f, Lat: %.5f", loc.Lon, loc.Lat)
	}
	return "Unknown Location"
}
