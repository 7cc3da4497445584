package modelregistry

import (
	"context"
	"fmt"
	"math"
)

// LinearModel is a logistic classifier: verdict 1 when
// sigmoid(w·x + b) >= threshold.
type LinearModel struct {
	Weights   []float64
	Bias      float64
	Threshold float64
}

func newLinear(e Entry) *LinearModel {
	th := e.Threshold
	if th == 0 {
		th = 0.5
	}
	return &LinearModel{
		Weights:   append([]float64(nil), e.Weights...),
		Bias:      e.Bias,
		Threshold: th,
	}
}

func (m *LinearModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("linear model expects %d features, got %d", len(m.Weights), len(row))
		}
		if m.Probability(row) >= m.Threshold {
			out[i] = 1
		}
	}
	return out, nil
}

// Probability returns sigmoid(w·x + b) for one row of matching length.
func (m *LinearModel) Probability(row []float64) float64 {
	z := m.Bias
	for j, x := range row {
		z += m.Weights[j] * x
	}
	return 1 / (1 + math.Exp(-z))
}
