package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stillopen-api/internal/cache"
	"stillopen-api/internal/classifier"
	"stillopen-api/internal/features"
	"stillopen-api/internal/models"

	"github.com/rs/zerolog/log"
)

// PlaceRepository fetches single places from the catalog.
type PlaceRepository interface {
	GetByID(ctx context.Context, placeID string) (models.Place, error)
}

// Classifier evaluates feature vectors. *classifier.Model implements it.
type Classifier interface {
	Version() string
	Predict(v features.Vector) (classifier.Prediction, error)
}

// Explainer renders explanation sentences for a prediction.
type Explainer interface {
	Explain(place models.Place, v features.Vector, contributions []classifier.Contribution, label models.Status) []string
}

const (
	modelUnavailableMessage    = "Prediction model is not available right now."
	insufficientSignalsMessage = "Not enough information about this place to predict whether it is open."
	classifierErrorMessage     = "Prediction could not be computed for this place."
	catalogErrorMessage        = "Place details could not be loaded."
)

// PredictionOptions tunes a PredictionService. Zero values select the
// defaults.
type PredictionOptions struct {
	// MaxMissingSignals is the number of absent signals tolerated before
	// a prediction degrades to UNKNOWN.
	MaxMissingSignals int
	// Cache, when set, serves repeated predictions for unchanged places.
	Cache *cache.Predictions
	// Now anchors recency features. Defaults to time.Now.
	Now func() time.Time
}

const DefaultMaxMissingSignals = 10

// PredictionService runs fetch, feature extraction, classification and
// explanation, in that order, for one place.
type PredictionService struct {
	repo       PlaceRepository
	pipeline   *features.Pipeline
	model      Classifier
	explainer  Explainer
	maxMissing int
	cache      *cache.Predictions
	now        func() time.Time
}

// NewPredictionService creates a new prediction service. model may be nil,
// in which case every prediction is UNKNOWN.
func NewPredictionService(repo PlaceRepository, pipeline *features.Pipeline, model Classifier, explainer Explainer, opts PredictionOptions) *PredictionService {
	s := &PredictionService{
		repo:       repo,
		pipeline:   pipeline,
		model:      model,
		explainer:  explainer,
		maxMissing: opts.MaxMissingSignals,
		cache:      opts.Cache,
		now:        opts.Now,
	}
	if s.maxMissing <= 0 {
		s.maxMissing = DefaultMaxMissingSignals
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Ready returns an error wrapping models.ErrModelUnavailable until a model
// is loaded.
func (s *PredictionService) Ready() error {
	if s.model == nil {
		return fmt.Errorf("service: %w", models.ErrModelUnavailable)
	}
	return nil
}

// SchemaFingerprint identifies the feature schema the pipeline produces.
func (s *PredictionService) SchemaFingerprint() string {
	return s.pipeline.Schema().Fingerprint()
}

// ModelVersion is the loaded model's version, or "" without one.
func (s *PredictionService) ModelVersion() string {
	if s.model == nil {
		return ""
	}
	return s.model.Version()
}

// PredictByID predicts the status of a catalog place. It returns
// models.ErrNotFound for unknown ids; every other failure is reported as an
// UNKNOWN result.
func (s *PredictionService) PredictByID(ctx context.Context, placeID string) (models.PredictionResult, error) {
	_, result, err := s.lookup(ctx, placeID)
	return result, err
}

// Detail is PredictByID plus the place's name and location summary.
func (s *PredictionService) Detail(ctx context.Context, placeID string) (models.PlaceDetail, error) {
	place, result, err := s.lookup(ctx, placeID)
	if err != nil {
		return models.PlaceDetail{}, err
	}
	return models.NewPlaceDetail(place, result), nil
}

func (s *PredictionService) lookup(ctx context.Context, placeID string) (models.Place, models.PredictionResult, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return models.Place{}, models.PredictionResult{}, fmt.Errorf("service: empty place id: %w", models.ErrNotFound)
	}

	place, err := s.repo.GetByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Place{}, models.PredictionResult{}, fmt.Errorf("service: place %s: %w", placeID, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Place{}, models.PredictionResult{}, fmt.Errorf("service: failed to fetch place: %w", ctxErr)
		}
		log.Warn().Err(err).Str("place_id", placeID).Msg("catalog lookup failed")
		place = models.Place{PlaceID: placeID}
		return place, models.Unknown(placeID, models.ReasonCatalogError, catalogErrorMessage), nil
	}

	return place, s.PredictPlace(place), nil
}

// PredictPlace predicts the status of an already fetched place.
func (s *PredictionService) PredictPlace(place models.Place) models.PredictionResult {
	if err := s.Ready(); err != nil {
		log.Warn().
			Err(err).
			Str("place_id", place.PlaceID).
			Str("reason", string(models.ReasonModelUnavailable)).
			Msg("prediction degraded")
		return models.Unknown(place.PlaceID, models.ReasonModelUnavailable, modelUnavailableMessage)
	}
	if s.cache == nil {
		return s.predict(place)
	}

	key, err := cache.Key(place, s.model.Version())
	if err != nil {
		log.Warn().Err(err).Str("place_id", place.PlaceID).Msg("prediction cache bypassed")
		return s.predict(place)
	}
	return s.cache.GetOrCompute(key, func() models.PredictionResult {
		return s.predict(place)
	})
}

func (s *PredictionService) predict(place models.Place) models.PredictionResult {
	v := s.pipeline.Extract(place, s.now())
	if len(v.Missing) > s.maxMissing {
		log.Warn().
			Str("place_id", place.PlaceID).
			Strs("missing", v.Missing).
			Str("reason", string(models.ReasonInsufficientSignals)).
			Msg("prediction degraded")
		return models.Unknown(place.PlaceID, models.ReasonInsufficientSignals, insufficientSignalsMessage)
	}

	prediction, err := s.model.Predict(v)
	if err != nil {
		log.Warn().
			Err(err).
			Str("place_id", place.PlaceID).
			Str("reason", string(models.ReasonClassifierError)).
			Msg("prediction degraded")
		return models.Unknown(place.PlaceID, models.ReasonClassifierError, classifierErrorMessage)
	}

	confidence := prediction.Confidence()
	openProbability := prediction.OpenProbability
	return models.PredictionResult{
		PlaceID:         place.PlaceID,
		Status:          prediction.Label,
		Confidence:      &confidence,
		OpenProbability: &openProbability,
		Explanation:     s.explainer.Explain(place, v, prediction.Contributions, prediction.Label),
		ModelVersion:    s.model.Version(),
	}
}
