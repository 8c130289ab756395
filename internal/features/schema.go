package features

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// SchemaVersion identifies the feature layout produced by Pipeline.
const SchemaVersion = "stillopen-features/v1"

// Feature names in vector order, before the per-sector category features.
const (
	FeatureConfidence           = "confidence"
	FeatureHasWebsite           = "has_website"
	FeatureHasSocial            = "has_social"
	FeatureHasPhone             = "has_phone"
	FeatureHasAddress           = "has_address"
	FeatureHasEmail             = "has_email"
	FeatureHasBrand             = "has_brand"
	FeatureNumSources           = "num_sources"
	FeatureSourceMeanConfidence = "source_mean_confidence"
	FeatureDaysSinceUpdate      = "days_since_last_update"
	FeatureHasUpdateTime        = "has_update_time"
	FeatureHasOpeningHours      = "has_opening_hours"
	FeatureHoursParseable       = "opening_hours_parseable"
	FeatureHasLocation          = "has_location"
	FeatureLatitude             = "latitude"
	FeatureLongitude            = "longitude"
	FeatureSourceOSM            = "source_osm"
	FeatureSourceOverture       = "source_overture"
	FeatureCategoryFreq         = "category_freq_score"

	// CategoryPrefix prefixes the one-hot sector features.
	CategoryPrefix = "cat_"
)

var baseFeatures = []string{
	FeatureConfidence,
	FeatureHasWebsite,
	FeatureHasSocial,
	FeatureHasPhone,
	FeatureHasAddress,
	FeatureHasEmail,
	FeatureHasBrand,
	FeatureNumSources,
	FeatureSourceMeanConfidence,
	FeatureDaysSinceUpdate,
	FeatureHasUpdateTime,
	FeatureHasOpeningHours,
	FeatureHoursParseable,
	FeatureHasLocation,
	FeatureLatitude,
	FeatureLongitude,
	FeatureSourceOSM,
	FeatureSourceOverture,
	FeatureCategoryFreq,
}

// Schema is the versioned descriptor of a feature vector: its names, in
// order. A classifier artifact carries the schema it was trained with.
type Schema struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

// NewSchema builds the schema for a vocabulary.
func NewSchema(vocab *Vocabulary) Schema {
	names := make([]string, 0, len(baseFeatures)+len(vocab.Sectors)+1)
	names = append(names, baseFeatures...)
	for _, sector := range vocab.SectorNames() {
		names = append(names, CategoryPrefix+sector)
	}
	return Schema{Version: SchemaVersion, Features: names}
}

// Len is the vector arity.
func (s Schema) Len() int {
	return len(s.Features)
}

// Index returns the position of a feature, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Features {
		if f == name {
			return i
		}
	}
	return -1
}

// Compatible returns an error describing the first difference between two
// schemas, or nil when they are identical.
func (s Schema) Compatible(other Schema) error {
	if s.Version != other.Version {
		return fmt.Errorf("schema version %q, expected %q", other.Version, s.Version)
	}
	if len(s.Features) != len(other.Features) {
		return fmt.Errorf("schema has %d features, expected %d", len(other.Features), len(s.Features))
	}
	for i := range s.Features {
		if s.Features[i] != other.Features[i] {
			return fmt.Errorf("feature %d is %q, expected %q", i, other.Features[i], s.Features[i])
		}
	}
	return nil
}

// Fingerprint is a short stable digest of the schema.
func (s Schema) Fingerprint() string {
	sum := blake3.Sum256([]byte(s.Version + "\x00" + strings.Join(s.Features, "\x00")))
	return hex.EncodeToString(sum[:8])
}
