// Package cache holds short-lived prediction results keyed by place content,
// so an edited catalog row never serves a stale status.
package cache

import (
	"time"

	"stillopen-api/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Predictions is an in-memory TTL cache of prediction results. Concurrent
// misses on one key run the computation once.
type Predictions struct {
	cache *gocache.Cache
	group singleflight.Group
}

// NewPredictions creates a prediction cache.
func NewPredictions(ttl time.Duration) *Predictions {
	return &Predictions{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Get returns a cached result.
func (c *Predictions) Get(key string) (models.PredictionResult, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(models.PredictionResult), true
	}
	return models.PredictionResult{}, false
}

// GetOrCompute returns the cached result for key or computes and stores it.
// UNKNOWN results are returned but not stored.
func (c *Predictions) GetOrCompute(key string, compute func() models.PredictionResult) models.PredictionResult {
	if result, ok := c.Get(key); ok {
		return result
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.Get(key); ok {
			return result, nil
		}
		result := compute()
		if result.Status != models.StatusUnknown {
			c.cache.SetDefault(key, result)
		}
		return result, nil
	})
	return v.(models.PredictionResult)
}
