package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/features"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 5.0, median([]float64{5}))
	assert.Equal(t, 4.0, median([]float64{9, 4, 2}))
	assert.Equal(t, 3.0, median([]float64{2, 4}))

	// The median is always inside [min, max] of the votes.
	votes := []float64{12.5, 3.1, 99.0}
	m := median(votes)
	assert.GreaterOrEqual(t, m, 3.1)
	assert.LessOrEqual(t, m, 99.0)
}

func TestSanitize(t *testing.T) {
	preds := sanitize([]float64{1.5, -2, math.NaN(), math.Inf(1), math.Inf(-1), 0})
	assert.Equal(t, []float64{1.5, 0, 0, 0, 0, 0}, preds)
}

func TestShrinkModelScalesBase(t *testing.T) {
	base := NewMovingAverageBaseline(7, 0)
	shrunk := &ShrinkModel{Base: base, Shrink: 0.85}

	rows := []features.Vector{{RollingMean7: 100}}

	basePreds, err := base.Predict(rows)
	require.NoError(t, err)
	require.Equal(t, 100.0, basePreds[0])

	preds, err := shrunk.Predict(rows)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, preds[0], 1e-9)
	assert.Equal(t, "moving_avg_7d_shrunk", shrunk.Name())
}

func TestMovingAverageBaseline(t *testing.T) {
	rows := []features.Vector{
		{RollingMean7: 10, RollingMean14: 20, RollingMean30: 30},
	}

	preds, err := NewMovingAverageBaseline(7, 0).Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, 10.0, preds[0])

	preds, err = NewMovingAverageBaseline(14, 0).Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, 20.0, preds[0])

	preds, err = NewMovingAverageBaseline(30, 0.1).Predict(rows)
	require.NoError(t, err)
	assert.InDelta(t, 33.0, preds[0], 1e-9)
}

func TestNaiveLastWeek(t *testing.T) {
	rows := []features.Vector{
		{Lag7: 12, HasLag7: true},
		{Lag7: 0, HasLag7: false},
	}

	preds, err := (&NaiveLastWeek{}).Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 0}, preds)
}
