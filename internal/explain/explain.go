// Package explain turns classifier contributions into short sentences a
// person can read next to a prediction.
package explain

import (
	"math"
	"sort"
	"strings"

	"stillopen-api/internal/classifier"
	"stillopen-api/internal/features"
	"stillopen-api/internal/models"
)

const (
	DefaultMaxItems     = 5
	DefaultMinMagnitude = 1e-3

	// recentDays is the age under which an update counts as recent.
	recentDays = 30

	supportsOpen = "supporting an OPEN signal"
	lowersOpen   = "lowering confidence of being open"
)

// Options configures a Generator. Zero values select the defaults.
type Options struct {
	MaxItems     int
	MinMagnitude float64
}

// Generator renders explanations. It is stateless and safe for concurrent
// use.
type Generator struct {
	maxItems     int
	minMagnitude float64
}

func New(opts Options) *Generator {
	g := &Generator{maxItems: opts.MaxItems, minMagnitude: opts.MinMagnitude}
	if g.maxItems <= 0 {
		g.maxItems = DefaultMaxItems
	}
	if g.minMagnitude <= 0 {
		g.minMagnitude = DefaultMinMagnitude
	}
	return g
}

// Explain ranks contributions by absolute magnitude, most important first,
// and renders one sentence per signal. Equal magnitudes keep the schema
// order. When no contribution is significant it falls back to rule-based
// sentences derived from the vector. The result is never empty and never
// longer than the configured cap.
func (g *Generator) Explain(place models.Place, v features.Vector, contributions []classifier.Contribution, label models.Status) []string {
	ranked := make([]classifier.Contribution, 0, len(contributions))
	for _, c := range contributions {
		if math.IsNaN(c.Value) || math.Abs(c.Value) < g.minMagnitude {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		mi, mj := math.Abs(ranked[i].Value), math.Abs(ranked[j].Value)
		if mi != mj {
			return mi > mj
		}
		return ranked[i].Index < ranked[j].Index
	})

	out := make([]string, 0, g.maxItems)
	seen := make(map[string]bool)
	for _, c := range ranked {
		if len(out) == g.maxItems {
			break
		}
		group, subject := describe(c.Feature, place, v)
		if subject == "" || seen[group] {
			continue
		}
		seen[group] = true
		effect := supportsOpen
		if c.Value < 0 {
			effect = lowersOpen
		}
		out = append(out, subject+", "+effect)
	}
	if len(out) > 0 {
		return out
	}
	return g.fallback(v, label)
}

// fallback mirrors the rule-based wording used when the model offers no
// attribution.
func (g *Generator) fallback(v features.Vector, label models.Status) []string {
	out := []string{generic(label)}
	if value(v, features.FeatureHasWebsite) == 1 {
		out = append(out, "Website is active.")
	}
	if value(v, features.FeatureHasSocial) == 1 {
		out = append(out, "Social media presence detected.")
	}
	if value(v, features.FeatureHasUpdateTime) == 1 && value(v, features.FeatureDaysSinceUpdate) < recentDays {
		out = append(out, "Recent data updates found.")
	}
	if len(out) > g.maxItems {
		out = out[:g.maxItems]
	}
	return out
}

func generic(label models.Status) string {
	switch label {
	case models.StatusOpen:
		return "Model predicts this place is likely open."
	case models.StatusClosed:
		return "Model predicts this place is likely closed."
	default:
		return "Not enough information to predict whether this place is open."
	}
}

func value(v features.Vector, name string) float64 {
	if v.Schema == nil {
		return 0
	}
	x, _ := v.Value(name)
	return x
}

func missing(v features.Vector, signal string) bool {
	for _, s := range v.Missing {
		if s == signal {
			return true
		}
	}
	return false
}

// sectorLabel turns a sector key such as "food_dining" into "food & dining".
func sectorLabel(sector string) string {
	parts := strings.Split(sector, "_")
	if len(parts) == 2 {
		return parts[0] + " & " + parts[1]
	}
	return strings.Join(parts, " ")
}
