package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
)

func testForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		HorizonDays:        7,
		ShrinkFactor:       0.85,
		StockoutBump:       1.20,
		ZScore:             1.65,
		LeadTimeDays:       1,
		MinHistoryDays:     7,
		SequenceLength:     60,
		BaselineWindow:     7,
		PerishableKeywords: []string{"salad", "juice", "fresh"},
	}
}

func observations(itemID string, days int, qty func(i int) float64) []domain.DemandObservation {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.DemandObservation, days)
	for i := 0; i < days; i++ {
		obs[i] = domain.DemandObservation{
			LocationID:   1,
			ItemID:       itemID,
			ItemName:     itemID,
			Date:         start.AddDate(0, 0, i),
			QuantitySold: qty(i),
		}
	}
	return obs
}

func TestForecastFallbackWhenNoTrainedModel(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	obs := observations("latte", 30, func(i int) float64 { return 10 })
	now := obs[len(obs)-1].Date

	points, meta := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 3}, now)
	require.NotEmpty(t, points)
	assert.Equal(t, domain.SourceFallback, meta.ModelSource)
	for _, p := range points {
		assert.Equal(t, domain.SourceFallback, p.ModelSource)
		assert.GreaterOrEqual(t, p.Ensemble, 0.0)
	}
}

func TestForecastReturnsDaysAheadPointsPerItem(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	obs := append(
		observations("latte", 30, func(i int) float64 { return 10 }),
		observations("scone", 30, func(i int) float64 { return 5 })...,
	)
	now := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	points, _ := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 5}, now)
	require.Len(t, points, 2*5)

	perItem := map[string]int{}
	for _, p := range points {
		perItem[p.ItemID]++
		assert.True(t, p.Date.After(now))
	}
	assert.Equal(t, 5, perItem["latte"])
	assert.Equal(t, 5, perItem["scone"])
}

func TestForecastSkipsShortHistory(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	obs := append(
		observations("latte", 30, func(i int) float64 { return 10 }),
		observations("newitem", 3, func(i int) float64 { return 2 })...,
	)
	now := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	points, meta := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 2}, now)
	for _, p := range points {
		assert.NotEqual(t, "newitem", p.ItemID)
	}
	require.Len(t, meta.SkippedItems, 1)
	assert.Equal(t, "newitem", meta.SkippedItems[0].ItemID)
}

func TestEnsembleWithinVoteBounds(t *testing.T) {
	cfg := testForecastConfig()
	registry := NewRegistry()

	// A trained snapshot over a baseline keeps the arithmetic inspectable:
	// balanced = rolling mean, waste = balanced * shrink.
	balanced := NewMovingAverageBaseline(7, 0)
	registry.Swap(&Snapshot{
		Identity:       "test",
		Balanced:       balanced,
		WasteOptimized: &ShrinkModel{Base: balanced, Shrink: cfg.ShrinkFactor},
	})

	e := NewEnsemble(cfg, registry)
	obs := observations("latte", 30, func(i int) float64 { return 10 })
	now := obs[len(obs)-1].Date

	points, meta := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 7}, now)
	require.NotEmpty(t, points)
	assert.Equal(t, domain.SourceEnsemble2, meta.ModelSource)

	for _, p := range points {
		lo := p.WasteOptimized
		hi := p.Balanced
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.GreaterOrEqual(t, p.Ensemble, lo-1e-9)
		assert.LessOrEqual(t, p.Ensemble, hi+1e-9)
		assert.LessOrEqual(t, p.WasteOptimized, p.Balanced+1e-9)
		assert.InDelta(t, p.Balanced*1.20, p.StockoutOptimized, 1e-9)
	}
}

func TestWasteOptimizedShrinksExactly(t *testing.T) {
	cfg := testForecastConfig()
	registry := NewRegistry()
	balanced := NewMovingAverageBaseline(7, 0)
	registry.Swap(&Snapshot{
		Identity:       "test",
		Balanced:       balanced,
		WasteOptimized: &ShrinkModel{Base: balanced, Shrink: 0.85},
	})

	e := NewEnsemble(cfg, registry)
	obs := observations("latte", 30, func(i int) float64 { return 100 })
	now := obs[len(obs)-1].Date

	points, _ := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 1}, now)
	require.Len(t, points, 1)
	assert.InDelta(t, points[0].Balanced*0.85, points[0].WasteOptimized, 1e-9)
}

func TestPerishableAndRiskTagging(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	// Volatile demand drives the coefficient of variation up.
	obs := append(
		observations("fresh juice", 30, func(i int) float64 {
			if i%2 == 0 {
				return 40
			}
			return 1
		}),
		observations("espresso", 30, func(i int) float64 { return 10 })...,
	)
	now := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	points, _ := e.Forecast(obs, domain.ForecastFilter{DaysAhead: 1}, now)
	require.Len(t, points, 2)

	byItem := map[string]domain.ForecastPoint{}
	for _, p := range points {
		byItem[p.ItemID] = p
	}

	juice := byItem["fresh juice"]
	espresso := byItem["espresso"]
	assert.True(t, juice.IsPerishable)
	assert.False(t, espresso.IsPerishable)
	assert.NotEqual(t, domain.RiskLow, juice.DemandRisk)
	assert.Equal(t, domain.RiskLow, espresso.DemandRisk)
}

func TestItemFilterAndLocationFilter(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	obs := append(
		observations("latte", 30, func(i int) float64 { return 10 }),
		observations("green tea", 30, func(i int) float64 { return 5 })...,
	)
	now := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	points, _ := e.Forecast(obs, domain.ForecastFilter{ItemFilter: "TEA", DaysAhead: 2}, now)
	require.NotEmpty(t, points)
	for _, p := range points {
		assert.Equal(t, "green tea", p.ItemID)
	}

	points, _ = e.Forecast(obs, domain.ForecastFilter{LocationID: 99, DaysAhead: 2}, now)
	assert.Empty(t, points)
}

func TestWeekdayFactorsClamped(t *testing.T) {
	// Monday demand 100x everything else would produce an unbounded raw
	// factor; it must clamp at 1.8 and floor at 0.5.
	start := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC) // a Monday
	var obs []domain.DemandObservation
	for w := 0; w < 4; w++ {
		for d := 0; d < 7; d++ {
			qty := 1.0
			if d == 0 {
				qty = 100
			}
			obs = append(obs, domain.DemandObservation{
				LocationID: 1, ItemID: "latte", ItemName: "latte",
				Date: start.AddDate(0, 0, w*7+d), QuantitySold: qty,
			})
		}
	}

	factors := weekdayFactors(obs)
	f, ok := factors["latte"]
	require.True(t, ok)
	assert.Equal(t, weekdayFactorMax, f[0])
	for dow := 1; dow < 7; dow++ {
		assert.Equal(t, weekdayFactorMin, f[dow])
	}
}

func TestWeekdayFactorDefaultsForUnseenWeekday(t *testing.T) {
	// Only Mondays observed: every other weekday takes the default.
	start := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	var obs []domain.DemandObservation
	for w := 0; w < 4; w++ {
		obs = append(obs, domain.DemandObservation{
			LocationID: 1, ItemID: "latte", ItemName: "latte",
			Date: start.AddDate(0, 0, w*7), QuantitySold: 10,
		})
	}

	factors := weekdayFactors(obs)
	f := factors["latte"]
	assert.Equal(t, 1.0, f[0])
	for dow := 1; dow < 7; dow++ {
		assert.Equal(t, weekdayFactorDefault, f[dow])
	}
}

func TestFactorForZeroValue(t *testing.T) {
	assert.Equal(t, 1.0, factorFor([7]float64{}, 3))
}

func TestZeroHistoryYieldsNothing(t *testing.T) {
	e := NewEnsemble(testForecastConfig(), NewRegistry())
	points, _ := e.Forecast(nil, domain.ForecastFilter{DaysAhead: 7}, time.Now())
	assert.Empty(t, points)
}
