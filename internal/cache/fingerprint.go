package cache

import (
	"encoding/hex"
	"fmt"
	"time"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var fingerprintMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
	fingerprintMode = mode
}

// fingerprintRecord is every input that can change a prediction.
type fingerprintRecord struct {
	Name         string          `cbor:"1,keyasint"`
	Category     string          `cbor:"2,keyasint"`
	Location     *geo.Point      `cbor:"3,keyasint"`
	Source       string          `cbor:"4,keyasint"`
	Metadata     models.Metadata `cbor:"5,keyasint"`
	LastUpdated  time.Time       `cbor:"6,keyasint"`
	ModelVersion string          `cbor:"7,keyasint"`
}

// Fingerprint digests the place content and the model version. Two places
// with the same fingerprint get the same prediction.
func Fingerprint(place models.Place, modelVersion string) (string, error) {
	data, err := fingerprintMode.Marshal(fingerprintRecord{
		Name:         place.Name,
		Category:     place.Category,
		Location:     place.Location,
		Source:       place.Source,
		Metadata:     place.Metadata,
		LastUpdated:  place.LastUpdated.UTC(),
		ModelVersion: modelVersion,
	})
	if err != nil {
		return "", fmt.Errorf("cache: fingerprint %s: %w", place.PlaceID, err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// Key is the cache key for a place under a model version.
func Key(place models.Place, modelVersion string) (string, error) {
	fp, err := Fingerprint(place, modelVersion)
	if err != nil {
		return "", err
	}
	return place.PlaceID + ":" + fp, nil
}
