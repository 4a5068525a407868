// internal/forecast/gbt_test.go
package forecast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
)

// weekendRows alternates weekday and weekend rows where only IsWeekend
// carries signal.
func weekendRows(n int, weekday, weekend float64) []features.Vector {
	rows := make([]features.Vector, 0, n)
	for i := 0; i < n; i++ {
		v := features.Vector{ItemID: "a", QuantitySold: weekday}
		if i%2 == 1 {
			v.IsWeekend = true
			v.QuantitySold = weekend
		}
		rows = append(rows, v)
	}
	return rows
}

func TestGBTPredictUntrained(t *testing.T) {
	m := NewGradientBoostedRegressor()
	assert.False(t, m.Trained())

	_, err := m.Predict(weekendRows(4, 10, 30))
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestGBTFitInsufficientRows(t *testing.T) {
	m := NewGradientBoostedRegressor()

	err := m.Fit(weekendRows(8, 10, 30))
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestGBTLearnsBinarySplit(t *testing.T) {
	m := NewGradientBoostedRegressor()
	rows := weekendRows(40, 10, 30)
	require.NoError(t, m.Fit(rows))
	require.True(t, m.Trained())

	preds, err := m.Predict(rows)
	require.NoError(t, err)
	require.Len(t, preds, 40)

	for i, p := range preds {
		want := 10.0
		if rows[i].IsWeekend {
			want = 30.0
		}
		assert.InDelta(t, want, p, 0.5)
	}
}

func TestGBTConstantTarget(t *testing.T) {
	m := NewGradientBoostedRegressor()
	rows := weekendRows(20, 7, 7)
	require.NoError(t, m.Fit(rows))

	// No split beats a constant fit, so predictions collapse to the base.
	preds, err := m.Predict(rows)
	require.NoError(t, err)
	for _, p := range preds {
		assert.InDelta(t, 7.0, p, 1e-9)
	}
}

func TestGBTArtifactRoundTrip(t *testing.T) {
	m := NewGradientBoostedRegressor()
	rows := weekendRows(40, 10, 30)
	require.NoError(t, m.Fit(rows))

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var restored GradientBoostedRegressor
	require.NoError(t, json.Unmarshal(data, &restored))
	require.True(t, restored.Trained())

	want, err := m.Predict(rows)
	require.NoError(t, err)
	got, err := restored.Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
