// internal/forecast/model.go
package forecast

import (
	"math"

	"github.com/flowpos/forecast-engine/internal/features"
)

// Model is the capability every forecasting variant satisfies. Fit trains
// on feature vectors with target = QuantitySold; Predict returns one point
// estimate per input row, clipped to >= 0 with non-finite values replaced
// by zero.
type Model interface {
	Name() string
	Fit(rows []features.Vector) error
	Predict(rows []features.Vector) ([]float64, error)
}

// sanitize enforces the prediction contract in place.
func sanitize(preds []float64) []float64 {
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			preds[i] = 0
			continue
		}
		if p < 0 {
			preds[i] = 0
		}
	}
	return preds
}

// ShrinkModel scales another model's output by a multiplicative factor.
// With shrink in (0,1) it is the waste-optimized variant: prep slightly
// less than expected demand, trading rare stockouts for less spoilage.
type ShrinkModel struct {
	Base   Model
	Shrink float64
}

func (m *ShrinkModel) Name() string { return m.Base.Name() + "_shrunk" }

func (m *ShrinkModel) Fit(rows []features.Vector) error { return m.Base.Fit(rows) }

func (m *ShrinkModel) Predict(rows []features.Vector) ([]float64, error) {
	preds, err := m.Base.Predict(rows)
	if err != nil {
		return nil, err
	}
	for i := range preds {
		preds[i] *= m.Shrink
	}
	return sanitize(preds), nil
}

// median returns the middle value of votes, averaging the two central
// values for even counts. The result always lies within [min, max] of the
// contributing votes.
func median(votes []float64) float64 {
	n := len(votes)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, votes)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
