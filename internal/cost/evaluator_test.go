// internal/cost/evaluator_test.go
package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/config"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(config.CostConfig{WasteFraction: 0.3, DefaultUnitPrice: 10})
}

func TestSchemeByName(t *testing.T) {
	s, ok := SchemeByName("")
	require.True(t, ok)
	assert.Equal(t, SchemeBalanced, s)

	s, ok = SchemeByName("profit")
	require.True(t, ok)
	assert.Equal(t, 2.0, s.StockoutMultiplier)

	s, ok = SchemeByName("sustainability")
	require.True(t, ok)
	assert.Equal(t, 2.0, s.WasteMultiplier)

	_, ok = SchemeByName("aggressive")
	assert.False(t, ok)
}

func TestEvaluateCosts(t *testing.T) {
	e := testEvaluator()

	// Day 1 overshoots by 5, day 2 undershoots by 3, day 3 is exact.
	actual := []float64{10, 10, 10}
	predicted := []float64{15, 7, 10}
	prices := []float64{2, 4, 8}

	ev, err := e.Evaluate("gradient_boosted", actual, predicted, prices, SchemeBalanced)
	require.NoError(t, err)

	assert.InDelta(t, 5*2*0.3, ev.WasteCost, 1e-9)
	assert.InDelta(t, 3*4.0, ev.StockoutCost, 1e-9)
	assert.InDelta(t, 1.0*3.0+1.5*12.0, ev.TotalCost, 1e-9)
	assert.InDelta(t, 5.0, ev.OverstockUnits, 1e-9)
	assert.InDelta(t, 3.0, ev.UnderstockUnits, 1e-9)
	assert.Equal(t, 3, ev.Samples)

	// abs error 8 over actual 30.
	assert.InDelta(t, 8.0/3.0, ev.MAE, 1e-9)
	assert.InDelta(t, 100*8.0/30.0, ev.WMAPE, 1e-9)
	assert.InDelta(t, 100-100*8.0/30.0, ev.ForecastAccuracy, 1e-9)
}

func TestEvaluateExtremes(t *testing.T) {
	e := testEvaluator()

	over, err := e.Evaluate("m", []float64{5, 5}, []float64{9, 7}, nil, SchemeBalanced)
	require.NoError(t, err)
	assert.Zero(t, over.StockoutCost)
	assert.InDelta(t, (4+2)*10*0.3, over.WasteCost, 1e-9)

	under, err := e.Evaluate("m", []float64{9, 7}, []float64{5, 5}, nil, SchemeBalanced)
	require.NoError(t, err)
	assert.Zero(t, under.WasteCost)
	assert.InDelta(t, (4+2)*10.0, under.StockoutCost, 1e-9)

	exact, err := e.Evaluate("m", []float64{5, 5}, []float64{5, 5}, nil, SchemeBalanced)
	require.NoError(t, err)
	assert.Zero(t, exact.TotalCost)
	assert.InDelta(t, 100.0, exact.ForecastAccuracy, 1e-9)
}

func TestEvaluateAccuracyFloorsAtZero(t *testing.T) {
	e := testEvaluator()

	// WMAPE above 100 must not produce a negative accuracy.
	ev, err := e.Evaluate("m", []float64{1, 1}, []float64{10, 10}, nil, SchemeBalanced)
	require.NoError(t, err)
	assert.Greater(t, ev.WMAPE, 100.0)
	assert.Zero(t, ev.ForecastAccuracy)
}

func TestEvaluatePriceFallback(t *testing.T) {
	e := testEvaluator()

	// Missing and non-positive prices use the configured default.
	ev, err := e.Evaluate("m", []float64{10, 10}, []float64{12, 12}, []float64{0}, SchemeBalanced)
	require.NoError(t, err)
	assert.InDelta(t, (2+2)*10*0.3, ev.WasteCost, 1e-9)
}

func TestEvaluateLengthMismatch(t *testing.T) {
	e := testEvaluator()

	_, err := e.Evaluate("m", []float64{1, 2}, []float64{1}, nil, SchemeBalanced)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = e.EvaluateSchemes("m", []float64{1, 2}, []float64{1}, nil, []Scheme{SchemeBalanced})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEvaluateSchemesMatchesEvaluate(t *testing.T) {
	e := testEvaluator()
	actual := []float64{10, 12, 8, 14}
	predicted := []float64{11, 9, 10, 14}
	schemes := []Scheme{SchemeBalanced, SchemeProfit, SchemeSustainability}

	batch, err := e.EvaluateSchemes("m", actual, predicted, nil, schemes)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, s := range schemes {
		single, err := e.Evaluate("m", actual, predicted, nil, s)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestCompareRanksByTotalCost(t *testing.T) {
	e := testEvaluator()
	actual := []float64{10, 10, 10}

	cmp, err := e.Compare(actual, map[string][]float64{
		"sharp": {10, 11, 10},
		"blunt": {20, 2, 15},
	}, nil, SchemeBalanced)
	require.NoError(t, err)

	assert.Equal(t, "sharp", cmp.BestModel)
	assert.Equal(t, "blunt", cmp.WorstModel)
	require.Len(t, cmp.Rankings, 2)
	assert.InDelta(t, cmp.Rankings[1].TotalCost-cmp.Rankings[0].TotalCost, cmp.SavingsVsWorst, 1e-9)
	assert.Greater(t, cmp.SavingsVsWorst, 0.0)
}

func TestCompareNoCandidates(t *testing.T) {
	e := testEvaluator()
	_, err := e.Compare([]float64{1}, nil, nil, SchemeBalanced)
	assert.Error(t, err)
}
