package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"
)

const (
	formatJSONL = "jsonl"
	formatCSV   = "csv"
)

// placeRecord is one line of a JSON-lines import file. Overture exports
// name the id "id" and OSM extracts use latitude/longitude, so both
// spellings are accepted.
type placeRecord struct {
	PlaceID     string          `json:"place_id"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	Source      string          `json:"source"`
	Metadata    json.RawMessage `json:"metadata"`
	LastUpdated string          `json:"last_updated"`
}

func readPlacesFile(path, format string) ([]models.Place, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if format == formatCSV {
		return parseCSV(file)
	}
	return parseJSONL(file)
}

func parseJSONL(r io.Reader) ([]models.Place, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var places []models.Place
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec placeRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		place, err := rec.place()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		places = append(places, place)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return places, nil
}

func (rec placeRecord) place() (models.Place, error) {
	id := rec.PlaceID
	if id == "" {
		id = rec.ID
	}
	lat, lon := rec.Lat, rec.Lon
	if lat == nil {
		lat = rec.Latitude
	}
	if lon == nil {
		lon = rec.Longitude
	}
	return buildPlace(id, rec.Name, rec.Category, rec.Source, lat, lon, rec.Metadata, rec.LastUpdated)
}

var csvColumns = []string{"place_id", "name", "category", "lat", "lon", "source", "metadata", "last_updated"}

func parseCSV(r io.Reader) ([]models.Place, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["place_id"]; !ok {
		return nil, fmt.Errorf("header has no place_id column, expected %s", strings.Join(csvColumns, ","))
	}

	var places []models.Place
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		lat, err := parseCoordinate(field("lat"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid latitude: %w", row, err)
		}
		lon, err := parseCoordinate(field("lon"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid longitude: %w", row, err)
		}
		var metadata json.RawMessage
		if m := field("metadata"); m != "" {
			metadata = json.RawMessage(m)
		}

		place, err := buildPlace(field("place_id"), field("name"), field("category"), field("source"), lat, lon, metadata, field("last_updated"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		places = append(places, place)
	}
	return places, nil
}

func parseCoordinate(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func buildPlace(id, name, category, source string, lat, lon *float64, metadata json.RawMessage, lastUpdated string) (models.Place, error) {
	if id == "" {
		return models.Place{}, fmt.Errorf("missing place_id")
	}
	place := models.Place{
		PlaceID:  id,
		Name:     name,
		Category: category,
		Source:   source,
	}

	if (lat == nil) != (lon == nil) {
		return models.Place{}, fmt.Errorf("place %s: lat and lon must be given together", id)
	}
	if lat != nil {
		point := geo.Point{Lat: *lat, Lon: *lon}
		if err := point.Validate(); err != nil {
			return models.Place{}, fmt.Errorf("place %s: %w", id, err)
		}
		place.Location = &point
	}

	raw := bytes.TrimSpace(metadata)
	// Some exports store the bag as a JSON string.
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		raw = bytes.TrimSpace([]byte(nested))
	}
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &place.Metadata); err != nil {
			return models.Place{}, fmt.Errorf("place %s: %w", id, err)
		}
	}
	if place.Source == "" {
		place.Source = place.Metadata.Source
	}

	if lastUpdated != "" {
		t, err := parseTimestamp(lastUpdated)
		if err != nil {
			return models.Place{}, fmt.Errorf("place %s: invalid last_updated: %w", id, err)
		}
		place.LastUpdated = t
	}
	return place, nil
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// distinctIDs counts unique place ids; a repeated id is an upsert.
func distinctIDs(places []models.Place) int {
	seen := make(map[string]struct{}, len(places))
	for _, p := range places {
		seen[p.PlaceID] = struct{}{}
	}
	return len(seen)
}

// unrecognizedKeys counts, per metadata key the engine does not interpret,
// how many places carry it.
func unrecognizedKeys(places []models.Place) map[string]int {
	counts := make(map[string]int)
	for _, p := range places {
		for _, key := range p.Metadata.ExtraKeys() {
			counts[key]++
		}
	}
	return counts
}
