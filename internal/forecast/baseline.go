// internal/forecast/baseline.go
package forecast

import (
	"fmt"

	"github.com/flowpos/forecast-engine/internal/features"
)

// MovingAverageBaseline predicts the rolling mean of the last Window days,
// optionally bumped by a percentage safety buffer. It requires no fitting
// and is the deterministic fallback when no trained model exists.
type MovingAverageBaseline struct {
	Window    int
	BufferPct float64
}

// NewMovingAverageBaseline defaults to a 7-day window with no buffer.
func NewMovingAverageBaseline(window int, bufferPct float64) *MovingAverageBaseline {
	if window <= 0 {
		window = 7
	}
	return &MovingAverageBaseline{Window: window, BufferPct: bufferPct}
}

func (m *MovingAverageBaseline) Name() string {
	if m.BufferPct > 0 {
		return fmt.Sprintf("moving_avg_%dd_buffer%d", m.Window, int(m.BufferPct*100))
	}
	return fmt.Sprintf("moving_avg_%dd", m.Window)
}

// Fit is a no-op; the baseline reads pre-computed rolling features.
func (m *MovingAverageBaseline) Fit(rows []features.Vector) error { return nil }

func (m *MovingAverageBaseline) Predict(rows []features.Vector) ([]float64, error) {
	preds := make([]float64, len(rows))
	for i, r := range rows {
		preds[i] = m.rollingMean(&r) * (1 + m.BufferPct)
	}
	return sanitize(preds), nil
}

// rollingMean picks the pre-computed feature closest to the configured
// window, the way the feature set exposes them.
func (m *MovingAverageBaseline) rollingMean(v *features.Vector) float64 {
	switch {
	case m.Window <= 7:
		return v.RollingMean7
	case m.Window <= 14:
		return v.RollingMean14
	default:
		return v.RollingMean30
	}
}

// NaiveLastWeek predicts the same weekday last week's demand. Kept as a
// comparison baseline for cost evaluation runs.
type NaiveLastWeek struct{}

func (m *NaiveLastWeek) Name() string { return "naive_last_week" }

func (m *NaiveLastWeek) Fit(rows []features.Vector) error { return nil }

func (m *NaiveLastWeek) Predict(rows []features.Vector) ([]float64, error) {
	preds := make([]float64, len(rows))
	for i, r := range rows {
		if r.HasLag7 {
			preds[i] = r.Lag7
		}
	}
	return sanitize(preds), nil
}
