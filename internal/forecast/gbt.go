// internal/forecast/gbt.go
package forecast

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
)

// GradientBoostedRegressor is a least-squares boosted ensemble of
// regression stumps over the dense feature vector. Each round fits one
// depth-1 split to the current residuals and adds it at the learning
// rate. The exact splitting strategy is an implementation detail of this
// variant; callers depend only on the Fit/Predict contract.
type GradientBoostedRegressor struct {
	Estimators     int
	LearningRate   float64
	MinSamplesLeaf int

	base   float64
	stumps []stump
}

type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// NewGradientBoostedRegressor uses 100 rounds at a 0.1 learning rate,
// matching the tuned defaults carried over from the training pipeline.
func NewGradientBoostedRegressor() *GradientBoostedRegressor {
	return &GradientBoostedRegressor{
		Estimators:     100,
		LearningRate:   0.1,
		MinSamplesLeaf: 5,
	}
}

func (m *GradientBoostedRegressor) Name() string { return "gradient_boosted" }

type gbtArtifact struct {
	Estimators     int     `json:"estimators"`
	LearningRate   float64 `json:"learning_rate"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Base           float64 `json:"base"`
	Stumps         []stump `json:"stumps"`
}

func (m *GradientBoostedRegressor) MarshalJSON() ([]byte, error) {
	return json.Marshal(gbtArtifact{
		Estimators:     m.Estimators,
		LearningRate:   m.LearningRate,
		MinSamplesLeaf: m.MinSamplesLeaf,
		Base:           m.base,
		Stumps:         m.stumps,
	})
}

func (m *GradientBoostedRegressor) UnmarshalJSON(data []byte) error {
	var a gbtArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Estimators = a.Estimators
	m.LearningRate = a.LearningRate
	m.MinSamplesLeaf = a.MinSamplesLeaf
	m.base = a.Base
	m.stumps = a.Stumps
	return nil
}

// Trained reports whether Fit has produced a usable model.
func (m *GradientBoostedRegressor) Trained() bool { return len(m.stumps) > 0 || m.base != 0 }

func (m *GradientBoostedRegressor) Fit(rows []features.Vector) error {
	if len(rows) < 2*m.MinSamplesLeaf {
		return fmt.Errorf("gradient boosted fit: %w: %d rows", domain.ErrInsufficientHistory, len(rows))
	}

	n := len(rows)
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		x[i] = featureRow(&rows[i])
		y[i] = rows[i].QuantitySold
	}

	m.base = mean(y)
	m.stumps = m.stumps[:0]

	residuals := make([]float64, n)
	for i := range y {
		residuals[i] = y[i] - m.base
	}

	for round := 0; round < m.Estimators; round++ {
		s, ok := m.bestStump(x, residuals)
		if !ok {
			break
		}
		m.stumps = append(m.stumps, s)
		for i := range residuals {
			residuals[i] -= m.LearningRate * s.apply(x[i])
		}
	}
	return nil
}

func (m *GradientBoostedRegressor) Predict(rows []features.Vector) ([]float64, error) {
	if !m.Trained() {
		return nil, domain.ErrModelUnavailable
	}
	preds := make([]float64, len(rows))
	for i := range rows {
		fr := featureRow(&rows[i])
		p := m.base
		for _, s := range m.stumps {
			p += m.LearningRate * s.apply(fr)
		}
		preds[i] = p
	}
	return sanitize(preds), nil
}

func (s *stump) apply(fr []float64) float64 {
	if fr[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// bestStump scans every feature for the split minimizing squared error on
// the residuals. Returns false when no split improves on a constant fit.
func (m *GradientBoostedRegressor) bestStump(x [][]float64, residuals []float64) (stump, bool) {
	n := len(residuals)
	nFeatures := len(x[0])

	total := 0.0
	for _, r := range residuals {
		total += r
	}
	baseSSE := sse(residuals, total/float64(n))

	best := stump{}
	bestGain := 1e-9
	found := false

	idx := make([]int, n)
	for f := 0; f < nFeatures; f++ {
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return x[idx[a]][f] < x[idx[b]][f] })

		leftSum := 0.0
		for cut := 1; cut < n; cut++ {
			leftSum += residuals[idx[cut-1]]
			// Only split between distinct feature values.
			if x[idx[cut]][f] == x[idx[cut-1]][f] {
				continue
			}
			if cut < m.MinSamplesLeaf || n-cut < m.MinSamplesLeaf {
				continue
			}
			rightSum := total - leftSum
			leftMean := leftSum / float64(cut)
			rightMean := rightSum / float64(n-cut)

			split := 0.0
			for i := 0; i < cut; i++ {
				d := residuals[idx[i]] - leftMean
				split += d * d
			}
			for i := cut; i < n; i++ {
				d := residuals[idx[i]] - rightMean
				split += d * d
			}

			if gain := baseSSE - split; gain > bestGain {
				bestGain = gain
				best = stump{
					Feature:   f,
					Threshold: (x[idx[cut-1]][f] + x[idx[cut]][f]) / 2,
					Left:      leftMean,
					Right:     rightMean,
				}
				found = true
			}
		}
	}
	return best, found
}

// featureRow flattens a vector into the fixed column order the stumps
// index into. Order must stay stable across Fit and Predict.
func featureRow(v *features.Vector) []float64 {
	return []float64{
		float64(v.DayOfWeek),
		float64(v.DayOfMonth),
		float64(v.Month),
		float64(v.Quarter),
		float64(v.WeekOfYear),
		float64(v.DayOfYear),
		float64(v.Season),
		boolF(v.IsWeekend),
		boolF(v.IsFriday),
		boolF(v.IsMonday),
		v.DowSin, v.DowCos, v.MonthSin, v.MonthCos,
		v.Lag1, v.Lag7, v.Lag14, v.Lag28,
		v.RollingMean7, v.RollingMean14, v.RollingMean30,
		v.RollingStd7, v.RollingStd14,
		v.SameWeekdayAvg4,
		v.ExpandingMean,
		v.TemperatureMax, v.TemperatureMin, v.PrecipitationMM,
		boolF(v.IsRainy), boolF(v.IsHoliday), boolF(v.IsPromotion),
		v.DiscountPct,
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sse(xs []float64, m float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += (x - m) * (x - m)
	}
	return total
}
