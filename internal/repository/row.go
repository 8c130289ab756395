package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"
	"stillopen-api/internal/textmatch"
)

// placeRow is a catalog row in the shape both stores read and write.
type placeRow struct {
	PlaceID     string
	Name        string
	SearchName  string
	Category    string
	Source      string
	Lat         *float64
	Lon         *float64
	Metadata    []byte
	LastUpdated *time.Time
}

func newPlaceRow(p models.Place) (placeRow, error) {
	if strings.TrimSpace(p.PlaceID) == "" {
		return placeRow{}, fmt.Errorf("repository: place without place_id")
	}
	row := placeRow{
		PlaceID:    p.PlaceID,
		Name:       p.Name,
		SearchName: textmatch.Normalize(p.Name),
		Category:   p.Category,
		Source:     p.Source,
	}
	if p.Location != nil {
		if err := p.Location.Validate(); err != nil {
			return placeRow{}, fmt.Errorf("repository: place %s: %w", p.PlaceID, err)
		}
		lat, lon := p.Location.Lat, p.Location.Lon
		row.Lat, row.Lon = &lat, &lon
	}
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return placeRow{}, fmt.Errorf("repository: encode metadata for %s: %w", p.PlaceID, err)
	}
	row.Metadata = metadata
	if !p.LastUpdated.IsZero() {
		updated := p.LastUpdated.UTC()
		row.LastUpdated = &updated
	}
	return row, nil
}

func (r placeRow) place() (models.Place, error) {
	p := models.Place{
		PlaceID:  r.PlaceID,
		Name:     r.Name,
		Category: r.Category,
		Source:   r.Source,
	}
	if r.Lat != nil && r.Lon != nil {
		p.Location = &geo.Point{Lat: *r.Lat, Lon: *r.Lon}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &p.Metadata); err != nil {
			return models.Place{}, fmt.Errorf("repository: decode metadata for %s: %w", r.PlaceID, err)
		}
	}
	if r.LastUpdated != nil {
		p.LastUpdated = r.LastUpdated.UTC()
	}
	return p, nil
}

// placeRows converts places for insertion. A place id repeated in the
// batch keeps its last occurrence.
func placeRows(places []models.Place) ([]placeRow, error) {
	position := make(map[string]int, len(places))
	rows := make([]placeRow, 0, len(places))
	for _, p := range places {
		row, err := newPlaceRow(p)
		if err != nil {
			return nil, err
		}
		if i, ok := position[row.PlaceID]; ok {
			rows[i] = row
			continue
		}
		position[row.PlaceID] = len(rows)
		rows = append(rows, row)
	}
	return rows, nil
}
