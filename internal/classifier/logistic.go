package classifier

import "math"

type logisticModel struct {
	intercept float64
	weights   []float64
	means     []float64
}

func newLogistic(l *Logistic) *logisticModel {
	means := l.Means
	if means == nil {
		means = make([]float64, len(l.Weights))
	}
	return &logisticModel{intercept: l.Intercept, weights: l.Weights, means: means}
}

func (m *logisticModel) probability(x []float64) float64 {
	z := m.intercept
	for i, w := range m.weights {
		z += w * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}

// contributions are log-odds deltas relative to the training mean.
func (m *logisticModel) contributions(x []float64) []float64 {
	out := make([]float64, len(m.weights))
	for i, w := range m.weights {
		out[i] = w * (x[i] - m.means[i])
	}
	return out
}
