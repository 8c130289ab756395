// Package features turns a catalog place into the fixed-order numeric vector
// the classifier was trained on. Extraction is total: absent metadata yields
// a documented sentinel and a presence flag, never an error.
package features

import (
	"math"
	"strings"
	"time"

	"stillopen-api/internal/models"
)

const (
	// DefaultRecencyHorizonDays clips days_since_last_update.
	DefaultRecencyHorizonDays = 1825

	// MissingRecencyDays is the days_since_last_update sentinel used when
	// no timestamp is known.
	MissingRecencyDays = 365
)

// Signals whose absence is counted in Vector.Missing.
const (
	SignalConfidence   = "confidence"
	SignalWebsite      = "website"
	SignalSocial       = "social"
	SignalPhone        = "phone"
	SignalAddress      = "address"
	SignalEmail        = "email"
	SignalBrand        = "brand"
	SignalSources      = "sources"
	SignalUpdateTime   = "update_time"
	SignalOpeningHours = "opening_hours"
	SignalLocation     = "location"
	SignalCategory     = "category"
)

// TrackedSignals is the number of signals whose absence is counted.
const TrackedSignals = 12

// Vector is one extracted feature vector. Values follow Schema order.
type Vector struct {
	Schema  *Schema
	Values  []float64
	Missing []string
}

// Value looks a feature up by name.
func (v Vector) Value(name string) (float64, bool) {
	i := v.Schema.Index(name)
	if i < 0 {
		return 0, false
	}
	return v.Values[i], true
}

// Options configures a Pipeline. Zero values select the defaults.
type Options struct {
	Vocabulary         *Vocabulary
	RecencyHorizonDays int
}

// Pipeline extracts feature vectors. It holds no mutable state and is safe
// for concurrent use.
type Pipeline struct {
	schema  Schema
	vocab   *Vocabulary
	horizon float64
	index   map[string]int
}

// NewPipeline creates a pipeline for the given options.
func NewPipeline(opts Options) *Pipeline {
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	horizon := opts.RecencyHorizonDays
	if horizon <= 0 {
		horizon = DefaultRecencyHorizonDays
	}
	schema := NewSchema(vocab)
	index := make(map[string]int, schema.Len())
	for i, name := range schema.Features {
		index[name] = i
	}
	return &Pipeline{
		schema:  schema,
		vocab:   vocab,
		horizon: float64(horizon),
		index:   index,
	}
}

// Schema returns the schema of the vectors this pipeline produces.
func (p *Pipeline) Schema() Schema {
	return p.schema
}

// Extract encodes a place. now anchors the recency feature; it is the only
// time input, so the same place and now always give the same vector.
func (p *Pipeline) Extract(place models.Place, now time.Time) Vector {
	values := make([]float64, p.schema.Len())
	var missing []string
	set := func(name string, v float64) {
		values[p.index[name]] = v
	}
	absent := func(signal string) {
		missing = append(missing, signal)
	}
	md := place.Metadata

	if md.Confidence != nil && finite(*md.Confidence) {
		set(FeatureConfidence, *md.Confidence)
	} else {
		absent(SignalConfidence)
	}

	switch {
	case md.HasWebsite != nil:
		set(FeatureHasWebsite, boolValue(*md.HasWebsite))
	case md.Websites != nil:
		set(FeatureHasWebsite, boolValue(hasAny(md.Websites)))
	default:
		absent(SignalWebsite)
	}

	presence := []struct {
		feature, signal string
		values          []string
	}{
		{FeatureHasSocial, SignalSocial, md.Socials},
		{FeatureHasPhone, SignalPhone, md.Phones},
		{FeatureHasEmail, SignalEmail, md.Emails},
	}
	for _, f := range presence {
		if f.values == nil {
			absent(f.signal)
			continue
		}
		set(f.feature, boolValue(hasAny(f.values)))
	}

	if md.Address != nil {
		set(FeatureHasAddress, boolValue(!md.Address.IsZero()))
	} else {
		absent(SignalAddress)
	}

	if md.Brand != nil {
		set(FeatureHasBrand, boolValue(strings.TrimSpace(*md.Brand) != ""))
	} else {
		absent(SignalBrand)
	}

	if md.Sources != nil {
		set(FeatureNumSources, float64(len(md.Sources)))
		set(FeatureSourceMeanConfidence, meanSourceConfidence(md.Sources))
	} else {
		absent(SignalSources)
	}

	if updated, ok := latestUpdate(place); ok {
		days := math.Floor(now.Sub(updated).Hours() / 24)
		set(FeatureDaysSinceUpdate, clip(days, 0, p.horizon))
		set(FeatureHasUpdateTime, 1)
	} else {
		set(FeatureDaysSinceUpdate, clip(MissingRecencyDays, 0, p.horizon))
		absent(SignalUpdateTime)
	}

	if md.OpeningHours != nil {
		hours := strings.TrimSpace(*md.OpeningHours)
		set(FeatureHasOpeningHours, boolValue(hours != ""))
		if hours != "" {
			_, err := ParseOpeningHours(hours)
			set(FeatureHoursParseable, boolValue(err == nil))
		}
	} else {
		absent(SignalOpeningHours)
	}

	if loc, ok := place.ValidLocation(); ok {
		set(FeatureHasLocation, 1)
		set(FeatureLatitude, loc.Lat)
		set(FeatureLongitude, loc.Lon)
	} else {
		absent(SignalLocation)
	}

	switch provenance(place) {
	case "osm":
		set(FeatureSourceOSM, 1)
	case "overture":
		set(FeatureSourceOverture, 1)
	}

	category := place.Category
	if strings.TrimSpace(category) == "" {
		category = md.PrimaryCategory
	}
	if strings.TrimSpace(category) == "" {
		absent(SignalCategory)
	}
	set(FeatureCategoryFreq, p.vocab.Frequency(category))
	set(CategoryPrefix+p.vocab.SectorOf(category), 1)

	return Vector{Schema: &p.schema, Values: values, Missing: missing}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func hasAny(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func meanSourceConfidence(sources []models.SourceRef) float64 {
	var sum float64
	n := 0
	for _, s := range sources {
		if s.Confidence != nil && finite(*s.Confidence) {
			sum += *s.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// latestUpdate is the most recent of the row's last_updated and the
// contributing sources' update times.
func latestUpdate(place models.Place) (time.Time, bool) {
	var latest time.Time
	if !place.LastUpdated.IsZero() {
		latest = place.LastUpdated
	}
	for _, s := range place.Metadata.Sources {
		if s.UpdateTime != nil && s.UpdateTime.After(latest) {
			latest = *s.UpdateTime
		}
	}
	return latest, !latest.IsZero()
}

func provenance(place models.Place) string {
	source := place.Source
	if strings.TrimSpace(source) == "" {
		source = place.Metadata.Source
	}
	switch s := strings.ToLower(strings.TrimSpace(source)); {
	case s == "osm" || strings.Contains(s, "openstreetmap"):
		return "osm"
	case strings.Contains(s, "overture"):
		return "overture"
	default:
		return s
	}
}
