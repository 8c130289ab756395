package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"
	"stillopen-api/internal/textmatch"

	"golang.org/x/sync/errgroup"
)

// SearchRepository retrieves name-similar candidates from the catalog.
type SearchRepository interface {
	FindBySimilarName(ctx context.Context, q models.NameQuery) ([]models.ScoredPlace, error)
}

// Predictor resolves the status of a fetched place. *PredictionService
// implements it.
type Predictor interface {
	PredictPlace(place models.Place) models.PredictionResult
}

const (
	DefaultSearchLimit         = 20
	DefaultMaxSearchLimit      = 100
	DefaultMinQueryLength      = 2
	DefaultSimilarityThreshold = 0.15
	DefaultProximityWeight     = 0.2
	DefaultSearchConcurrency   = 8

	// candidateFactor is how many store candidates are fetched per
	// requested result, so re-ranking can promote rows the store ordered
	// lower.
	candidateFactor = 4
	maxCandidates   = 200
)

// SearchOptions tunes a SearchService. Zero values select the defaults,
// except ProximityWeight, where zero ranks by text alone.
type SearchOptions struct {
	DefaultLimit        int
	MaxLimit            int
	MinQueryLength      int
	SimilarityThreshold float64
	ProximityWeight     float64
	Concurrency         int
}

// SearchService resolves free-text queries into ranked, status-annotated
// candidates.
type SearchService struct {
	repo      SearchRepository
	predictor Predictor
	opts      SearchOptions
}

// NewSearchService creates a new search service.
func NewSearchService(repo SearchRepository, predictor Predictor, opts SearchOptions) *SearchService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultSearchLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxSearchLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.ProximityWeight < 0 || opts.ProximityWeight >= 1 {
		opts.ProximityWeight = DefaultProximityWeight
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultSearchConcurrency
	}
	return &SearchService{repo: repo, predictor: predictor, opts: opts}
}

// Search returns at most q.Limit candidates ordered by descending
// relevance, then freshest, then place id. Text below the minimum effective
// length yields an empty list. A candidate whose prediction fails is kept
// with status UNKNOWN. If ctx ends before every status is resolved, no
// partial list is returned.
func (s *SearchService) Search(ctx context.Context, q models.SearchQuery) ([]models.SearchCandidate, error) {
	text, err := s.NormalizeQuery(q.Text)
	if errors.Is(err, models.ErrInvalidQuery) {
		return []models.SearchCandidate{}, nil
	}

	limit := s.clampLimit(q.Limit)
	var near *geo.Point
	if q.Near != nil && q.Near.Valid() {
		near = q.Near
	}

	nameQuery := models.NameQuery{
		Text:      text,
		Limit:     min(limit*candidateFactor, max(maxCandidates, limit)),
		Threshold: s.opts.SimilarityThreshold,
	}
	if near != nil && q.RadiusKm > 0 {
		nameQuery.Center = near
		nameQuery.RadiusKm = q.RadiusKm
	}

	hits, err := s.repo.FindBySimilarName(ctx, nameQuery)
	if err != nil {
		return nil, fmt.Errorf("service: failed to search places: %w", err)
	}

	ranked := s.rank(hits, text, near)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]models.PredictionResult, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range ranked {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.predictor.PredictPlace(ranked[i].place)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service: search interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("service: search interrupted: %w", err)
	}

	candidates := make([]models.SearchCandidate, len(ranked))
	for i, r := range ranked {
		candidates[i] = models.SearchCandidate{
			PlaceID:     r.place.PlaceID,
			Name:        r.place.Name,
			Address:     r.place.AddressSummary(),
			Status:      results[i].Status,
			Confidence:  results[i].Confidence,
			Relevance:   r.relevance,
			LastUpdated: r.place.LastUpdated,
		}
	}
	return candidates, nil
}

// NormalizeQuery folds query text the way catalog names are folded. Text
// shorter than the minimum effective length yields an error wrapping
// models.ErrInvalidQuery.
func (s *SearchService) NormalizeQuery(text string) (string, error) {
	normalized := textmatch.Normalize(text)
	if n := textmatch.EffectiveLength(normalized); n < s.opts.MinQueryLength {
		return "", fmt.Errorf("service: query has %d significant characters, need %d: %w", n, s.opts.MinQueryLength, models.ErrInvalidQuery)
	}
	return normalized, nil
}

func (s *SearchService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.opts.DefaultLimit
	case limit > s.opts.MaxLimit:
		return s.opts.MaxLimit
	default:
		return limit
	}
}

type rankedPlace struct {
	place     models.Place
	relevance float64
}

// rank scores store hits and sorts them into a total order. Text relevance
// always carries at least 1-w of the score; proximity only counts when a
// location hint was given.
func (s *SearchService) rank(hits []models.ScoredPlace, text string, near *geo.Point) []rankedPlace {
	seen := make(map[string]bool, len(hits))
	ranked := make([]rankedPlace, 0, len(hits))
	for _, hit := range hits {
		if seen[hit.Place.PlaceID] {
			continue
		}
		seen[hit.Place.PlaceID] = true

		contains := textmatch.Contains(textmatch.Normalize(hit.Place.Name), text)
		relevance := textmatch.TextScore(hit.Similarity, contains)
		if near != nil {
			var proximity float64
			if loc, ok := hit.Place.ValidLocation(); ok {
				proximity = geo.Proximity(geo.DistanceKm(*near, loc))
			}
			w := s.opts.ProximityWeight
			relevance = (1-w)*relevance + w*proximity
		}
		ranked = append(ranked, rankedPlace{place: hit.Place, relevance: relevance})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		if !a.place.LastUpdated.Equal(b.place.LastUpdated) {
			return a.place.LastUpdated.After(b.place.LastUpdated)
		}
		return a.place.PlaceID < b.place.PlaceID
	})
	return ranked
}
