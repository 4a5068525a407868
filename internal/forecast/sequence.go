// internal/forecast/sequence.go
package forecast

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
)

// SequenceRegressor operates on day-over-day demand deltas. It slides a
// fixed-length, zero-left-padded window over the delta series, learns a
// linear map from window to next delta, and reconstructs an absolute
// forecast as last observed demand plus the predicted delta, floored at
// zero. Recency is the model's edge over the tree ensemble: it reacts to
// trends faster than lag features do.
type SequenceRegressor struct {
	SequenceLength int
	Epochs         int
	LearningRate   float64

	weights []float64
	bias    float64
	trained bool
}

// NewSequenceRegressor defaults to a 60-day window.
func NewSequenceRegressor(sequenceLength int) *SequenceRegressor {
	if sequenceLength <= 0 {
		sequenceLength = 60
	}
	return &SequenceRegressor{
		SequenceLength: sequenceLength,
		Epochs:         30,
		LearningRate:   0.01,
	}
}

func (m *SequenceRegressor) Name() string { return "sequence_delta" }

type sequenceArtifact struct {
	SequenceLength int       `json:"sequence_length"`
	Epochs         int       `json:"epochs"`
	LearningRate   float64   `json:"learning_rate"`
	Weights        []float64 `json:"weights"`
	Bias           float64   `json:"bias"`
	Trained        bool      `json:"trained"`
}

func (m *SequenceRegressor) MarshalJSON() ([]byte, error) {
	return json.Marshal(sequenceArtifact{
		SequenceLength: m.SequenceLength,
		Epochs:         m.Epochs,
		LearningRate:   m.LearningRate,
		Weights:        m.weights,
		Bias:           m.bias,
		Trained:        m.trained,
	})
}

func (m *SequenceRegressor) UnmarshalJSON(data []byte) error {
	var a sequenceArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.SequenceLength = a.SequenceLength
	m.Epochs = a.Epochs
	m.LearningRate = a.LearningRate
	m.weights = a.Weights
	m.bias = a.Bias
	m.trained = a.Trained
	return nil
}

// Trained reports whether a usable weight vector exists.
func (m *SequenceRegressor) Trained() bool { return m.trained }

// Fit groups the vectors into per-item daily series and trains on every
// sliding delta window across all items.
func (m *SequenceRegressor) Fit(rows []features.Vector) error {
	var windowsX [][]float64
	var windowsY []float64

	for _, demand := range seriesByItem(rows) {
		deltas := toDeltas(demand)
		for i := 1; i < len(deltas); i++ {
			windowsX = append(windowsX, m.window(deltas[:i]))
			windowsY = append(windowsY, deltas[i])
		}
	}

	if len(windowsX) < 10 {
		return fmt.Errorf("sequence fit: %w: %d windows", domain.ErrInsufficientHistory, len(windowsX))
	}

	m.weights = make([]float64, m.SequenceLength)
	m.bias = 0

	// Averaged stochastic gradient descent on squared error, with a small
	// L2 term to keep weights bounded on short histories.
	const l2 = 1e-4
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for i, wx := range windowsX {
			pred := m.bias
			for j, w := range m.weights {
				pred += w * wx[j]
			}
			err := pred - windowsY[i]
			step := m.LearningRate / (1 + float64(epoch))
			m.bias -= step * err
			for j := range m.weights {
				m.weights[j] -= step * (err*wx[j] + l2*m.weights[j])
			}
		}
	}
	m.trained = true
	return nil
}

// Predict returns one estimate per row: the reconstruction from the delta
// window ending strictly before that row's date within its item's series.
func (m *SequenceRegressor) Predict(rows []features.Vector) ([]float64, error) {
	if !m.trained {
		return nil, domain.ErrModelUnavailable
	}
	preds := make([]float64, len(rows))
	series, index := seriesByItemIndexed(rows)

	for i := range rows {
		key := rows[i].ItemID
		pos := index[key][rows[i].Date.Unix()]
		if pos == 0 {
			preds[i] = 0
			continue
		}
		preds[i] = m.PredictNext(series[key][:pos])
	}
	return sanitize(preds), nil
}

// PredictNext forecasts the day after the given daily demand series.
func (m *SequenceRegressor) PredictNext(demand []float64) float64 {
	if !m.trained || len(demand) == 0 {
		return 0
	}
	deltas := toDeltas(demand)
	wx := m.window(deltas)
	delta := m.bias
	for j, w := range m.weights {
		delta += w * wx[j]
	}
	next := demand[len(demand)-1] + delta
	if next < 0 {
		return 0
	}
	return next
}

// window takes the most recent SequenceLength deltas, zero-left-padding
// shorter histories.
func (m *SequenceRegressor) window(deltas []float64) []float64 {
	w := make([]float64, m.SequenceLength)
	start := len(deltas) - m.SequenceLength
	if start < 0 {
		start = 0
	}
	copy(w[m.SequenceLength-(len(deltas)-start):], deltas[start:])
	return w
}

func toDeltas(demand []float64) []float64 {
	deltas := make([]float64, len(demand))
	prev := 0.0
	for i, d := range demand {
		deltas[i] = d - prev
		prev = d
	}
	return deltas
}

// seriesByItem reconstructs date-ordered daily demand per item id from
// feature rows. Rows for the same item across locations are summed.
func seriesByItem(rows []features.Vector) map[string][]float64 {
	series, _ := seriesByItemIndexed(rows)
	return series
}

// seriesByItemIndexed additionally maps each item's dates (unix) to their
// position in the merged series, so a row can locate the history strictly
// before its own day.
func seriesByItemIndexed(rows []features.Vector) (map[string][]float64, map[string]map[int64]int) {
	type dated struct {
		unix int64
		qty  float64
	}
	byItem := make(map[string][]dated)
	for _, r := range rows {
		byItem[r.ItemID] = append(byItem[r.ItemID], dated{unix: r.Date.Unix(), qty: r.QuantitySold})
	}

	series := make(map[string][]float64, len(byItem))
	index := make(map[string]map[int64]int, len(byItem))
	for item, ds := range byItem {
		sort.Slice(ds, func(i, j int) bool { return ds[i].unix < ds[j].unix })
		merged := make([]float64, 0, len(ds))
		pos := make(map[int64]int, len(ds))
		var lastUnix int64 = -1
		for _, d := range ds {
			if d.unix == lastUnix && len(merged) > 0 {
				merged[len(merged)-1] += d.qty
				continue
			}
			pos[d.unix] = len(merged)
			merged = append(merged, d.qty)
			lastUnix = d.unix
		}
		series[item] = merged
		index[item] = pos
	}
	return series, index
}
