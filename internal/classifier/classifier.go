// Package classifier is the evaluation boundary around a pre-trained binary
// OPEN/CLOSED classifier. A Model is loaded once at startup, is immutable
// afterwards and is safe for concurrent use.
package classifier

import (
	"fmt"
	"math"

	"stillopen-api/internal/features"
	"stillopen-api/internal/models"
)

// Threshold is the OPEN probability at or above which a place is OPEN.
const Threshold = 0.5

// Contribution is the signed effect of one feature on a prediction.
// Positive values push toward OPEN.
type Contribution struct {
	Feature string
	Index   int
	Value   float64
}

// Prediction is the output of one evaluation.
type Prediction struct {
	Label           models.Status
	OpenProbability float64
	Contributions   []Contribution
}

// Confidence is the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	if p.Label == models.StatusOpen {
		return p.OpenProbability
	}
	return 1 - p.OpenProbability
}

type scorer interface {
	probability(x []float64) float64
}

// attributor is implemented by model families that can split a prediction
// into per-feature contributions.
type attributor interface {
	contributions(x []float64) []float64
}

// Model is a loaded classifier handle.
type Model struct {
	version string
	schema  features.Schema
	scorer  scorer
}

// Load reads the artifact at path and checks it against the pipeline
// schema. Any disagreement in schema version, arity or feature order is
// reported as models.ErrSchemaMismatch.
func Load(path string, schema features.Schema) (*Model, error) {
	artifact, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(artifact, schema)
}

// New builds a Model from a decoded artifact.
func New(a *Artifact, schema features.Schema) (*Model, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := schema.Compatible(a.Schema); err != nil {
		return nil, fmt.Errorf("classifier: %w: %s", models.ErrSchemaMismatch, err)
	}

	var s scorer
	switch a.Kind {
	case KindLogistic:
		s = newLogistic(a.Logistic)
	case KindForest:
		s = newForest(a.Forest)
	}
	return &Model{
		version: a.ModelVersion,
		schema:  schema,
		scorer:  s,
	}, nil
}

// Version is the artifact's model version string.
func (m *Model) Version() string {
	return m.version
}

// Schema is the feature schema the model accepts.
func (m *Model) Schema() features.Schema {
	return m.schema
}

// Predict evaluates one vector. Contributions are in schema order; they are
// empty when the model family cannot attribute.
func (m *Model) Predict(v features.Vector) (Prediction, error) {
	if len(v.Values) != m.schema.Len() {
		return Prediction{}, fmt.Errorf("classifier: %w: vector has %d values, model expects %d",
			models.ErrSchemaMismatch, len(v.Values), m.schema.Len())
	}
	for i, x := range v.Values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Prediction{}, fmt.Errorf("classifier: feature %s is not finite", m.schema.Features[i])
		}
	}

	p := m.scorer.probability(v.Values)
	if math.IsNaN(p) {
		return Prediction{}, fmt.Errorf("classifier: model produced NaN")
	}
	p = math.Max(0, math.Min(1, p))

	label := models.StatusClosed
	if p >= Threshold {
		label = models.StatusOpen
	}

	prediction := Prediction{Label: label, OpenProbability: p}
	if a, ok := m.scorer.(attributor); ok {
		raw := a.contributions(v.Values)
		prediction.Contributions = make([]Contribution, len(raw))
		for i, c := range raw {
			prediction.Contributions[i] = Contribution{Feature: m.schema.Features[i], Index: i, Value: c}
		}
	}
	return prediction, nil
}
