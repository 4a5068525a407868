// internal/forecast/ensemble.go
package forecast

import (
	"sort"
	"strings"
	"time"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
)

const (
	weekdayFactorMin     = 0.5
	weekdayFactorMax     = 1.8
	weekdayFactorDefault = 0.8
)

// Ensemble combines the balanced model, its shrink-scaled waste-optimized
// variant and, when trained, the sequence model into a single median-vote
// forecast per item and date. Inference is read-only over a loaded
// snapshot and safe to run concurrently across items.
type Ensemble struct {
	cfg      config.ForecastConfig
	registry *Registry
	builder  *features.Builder
}

func NewEnsemble(cfg config.ForecastConfig, registry *Registry) *Ensemble {
	return &Ensemble{
		cfg:      cfg,
		registry: registry,
		builder:  features.NewBuilder(cfg.TopNItems, features.PolicyZeroFill),
	}
}

type itemState struct {
	itemID       string
	itemName     string
	latest       features.Vector
	series       []float64
	avg          float64
	std          float64
	cv           float64
	balanced     float64
	waste        float64
	sequence     *float64
	ensembleVote float64
	source       string
}

// Forecast produces days-ahead dated points per item from raw demand
// observations. Per-item failures are recorded in the metadata and never
// abort the batch; with no trained snapshot the whole batch degrades to
// the moving-average baseline tagged as fallback.
func (e *Ensemble) Forecast(obs []domain.DemandObservation, filter domain.ForecastFilter, now time.Time) ([]domain.ForecastPoint, domain.BatchMetadata) {
	meta := domain.BatchMetadata{ModelSource: domain.SourceFallback}
	daysAhead := filter.DaysAhead
	if daysAhead <= 0 {
		daysAhead = e.cfg.HorizonDays
	}

	obs = applyFilter(obs, filter)
	if len(obs) == 0 {
		return nil, meta
	}

	vecs, _ := e.builder.Build(obs)
	if len(vecs) == 0 {
		return nil, meta
	}

	states, skipped := e.prepareItems(vecs)
	meta.SkippedItems = skipped
	if len(states) == 0 {
		return nil, meta
	}
	if filter.TopN > 0 && len(states) > filter.TopN {
		sort.Slice(states, func(i, j int) bool { return states[i].avg > states[j].avg })
		states = states[:filter.TopN]
	}

	e.vote(states)
	meta.ModelSource = states[0].source

	factors := weekdayFactors(obs)
	start := truncateDay(now).AddDate(0, 0, 1)

	points := make([]domain.ForecastPoint, 0, len(states)*daysAhead)
	for d := 0; d < daysAhead; d++ {
		date := start.AddDate(0, 0, d)
		dow := (int(date.Weekday()) + 6) % 7
		for i := range states {
			st := &states[i]
			factor := factorFor(factors[st.itemID], dow)
			points = append(points, e.point(st, date, factor))
		}
	}
	return points, meta
}

// prepareItems reduces the feature rows to one latest-row state per item,
// skipping items below the minimum history.
func (e *Ensemble) prepareItems(vecs []features.Vector) ([]itemState, []domain.SkippedItem) {
	series := seriesByItem(vecs)

	latestByItem := make(map[string]features.Vector)
	names := make(map[string]string)
	for _, v := range vecs {
		cur, ok := latestByItem[v.ItemID]
		if !ok || v.Date.After(cur.Date) {
			latestByItem[v.ItemID] = v
		}
		if v.ItemName != "" {
			names[v.ItemID] = v.ItemName
		}
	}

	items := make([]string, 0, len(latestByItem))
	for id := range latestByItem {
		items = append(items, id)
	}
	sort.Strings(items)

	var states []itemState
	var skipped []domain.SkippedItem
	for _, id := range items {
		if len(series[id]) < e.cfg.MinHistoryDays {
			skipped = append(skipped, domain.SkippedItem{
				ItemID: id,
				Reason: domain.ErrInsufficientHistory.Error(),
			})
			continue
		}
		latest := latestByItem[id]
		avg := latest.RollingMean7
		if avg == 0 {
			avg = latest.QuantitySold
		}
		std := latest.RollingStd14
		if std == 0 {
			std = latest.RollingStd7
		}
		cv := 0.0
		if avg > 0 {
			cv = std / avg
		}
		states = append(states, itemState{
			itemID:   id,
			itemName: names[id],
			latest:   latest,
			series:   series[id],
			avg:      avg,
			std:      std,
			cv:       cv,
		})
	}
	return states, skipped
}

// vote fills per-item base predictions and the median ensemble estimate.
func (e *Ensemble) vote(states []itemState) {
	latest := make([]features.Vector, len(states))
	for i := range states {
		latest[i] = states[i].latest
	}

	snapshot := e.registry.Current()

	var balancedPreds, wastePreds []float64
	var err error
	if snapshot != nil {
		balancedPreds, err = snapshot.Balanced.Predict(latest)
		if err != nil {
			snapshot = nil
		}
	}
	if snapshot == nil {
		// No trained artifact: deterministic baseline, tagged fallback.
		baseline := NewMovingAverageBaseline(e.cfg.BaselineWindow, e.cfg.BaselineBufferPct)
		balancedPreds, _ = baseline.Predict(latest)
		for i := range states {
			st := &states[i]
			st.balanced = balancedPreds[i]
			st.waste = st.balanced * e.cfg.ShrinkFactor
			st.ensembleVote = st.balanced
			st.source = domain.SourceFallback
		}
		return
	}

	wastePreds, err = snapshot.WasteOptimized.Predict(latest)
	if err != nil {
		wastePreds = make([]float64, len(balancedPreds))
		for i, p := range balancedPreds {
			wastePreds[i] = p * e.cfg.ShrinkFactor
		}
	}

	for i := range states {
		st := &states[i]
		st.balanced = balancedPreds[i]
		st.waste = wastePreds[i]

		votes := []float64{st.balanced, st.waste}
		st.source = domain.SourceEnsemble2
		if snapshot.Sequence != nil && snapshot.Sequence.Trained() {
			seq := snapshot.Sequence.PredictNext(st.series)
			st.sequence = &seq
			votes = append(votes, seq)
			st.source = domain.SourceEnsemble3
		}
		st.ensembleVote = median(votes)
	}
}

// point projects an item's base estimates onto one forecast date via its
// weekday scaling factor.
func (e *Ensemble) point(st *itemState, date time.Time, factor float64) domain.ForecastPoint {
	clamp := func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return x
	}

	ensemble := clamp(st.ensembleVote * factor)
	balanced := clamp(st.balanced * factor)
	waste := clamp(st.waste * factor)
	safety := e.cfg.ZScore * st.std

	p := domain.ForecastPoint{
		ItemID:            st.itemID,
		ItemName:          st.itemName,
		LocationID:        st.latest.LocationID,
		Date:              date,
		Balanced:          balanced,
		WasteOptimized:    waste,
		StockoutOptimized: clamp(balanced * e.cfg.StockoutBump),
		Ensemble:          ensemble,
		Lower:             clamp(ensemble - safety),
		Upper:             ensemble + safety,
		AvgDailyDemand:    st.avg,
		DemandCV:          st.cv,
		DemandRisk:        domain.ClassifyDemandRisk(st.cv),
		IsPerishable:      e.isPerishable(st.itemName),
		SafetyStockUnits:  safety,
		ModelSource:       st.source,
	}
	if st.sequence != nil {
		scaled := clamp(*st.sequence * factor)
		p.Sequence = &scaled
	}
	return p
}

func (e *Ensemble) isPerishable(itemName string) bool {
	lower := strings.ToLower(itemName)
	for _, kw := range e.cfg.PerishableKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func applyFilter(obs []domain.DemandObservation, filter domain.ForecastFilter) []domain.DemandObservation {
	if filter.ItemFilter == "" && filter.LocationID == 0 {
		return obs
	}
	needle := strings.ToLower(filter.ItemFilter)
	kept := make([]domain.DemandObservation, 0, len(obs))
	for _, o := range obs {
		if filter.LocationID != 0 && o.LocationID != filter.LocationID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(o.ItemName), needle) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// weekdayFactors computes mean(demand on weekday w) / mean(demand overall)
// per item, clamped to [0.5, 1.8] so sparse weekdays cannot produce
// pathological multipliers. Weekdays with no data default to 0.8.
func weekdayFactors(obs []domain.DemandObservation) map[string][7]float64 {
	type acc struct {
		sum   [7]float64
		count [7]int
		total float64
		n     int
	}
	accs := make(map[string]*acc)
	for _, o := range obs {
		a := accs[o.ItemID]
		if a == nil {
			a = &acc{}
			accs[o.ItemID] = a
		}
		dow := (int(o.Date.Weekday()) + 6) % 7
		a.sum[dow] += o.QuantitySold
		a.count[dow]++
		a.total += o.QuantitySold
		a.n++
	}

	factors := make(map[string][7]float64, len(accs))
	for item, a := range accs {
		if a.n == 0 || a.total <= 0 {
			continue
		}
		overall := a.total / float64(a.n)
		var f [7]float64
		for dow := 0; dow < 7; dow++ {
			if a.count[dow] == 0 {
				f[dow] = weekdayFactorDefault
				continue
			}
			raw := (a.sum[dow] / float64(a.count[dow])) / overall
			if raw < weekdayFactorMin {
				raw = weekdayFactorMin
			}
			if raw > weekdayFactorMax {
				raw = weekdayFactorMax
			}
			f[dow] = raw
		}
		factors[item] = f
	}
	return factors
}

func factorFor(f [7]float64, dow int) float64 {
	if f == [7]float64{} {
		return 1.0
	}
	return f[dow]
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
