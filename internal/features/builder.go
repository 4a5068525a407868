// internal/features/builder.go
package features

import (
	"math"
	"sort"
	"time"

	"github.com/flowpos/forecast-engine/internal/domain"
)

// MissingLagPolicy names how rows with incomplete lag history are handled.
// The chosen policy is recorded on every build Report.
const (
	PolicyDrop     = "drop"
	PolicyZeroFill = "zero_fill"
)

const weekdayLookback = 4

// Builder turns ordered demand observations into feature vectors. It is
// stateless between calls and safe for concurrent use.
type Builder struct {
	topNItems  int
	policy     string
	regressors map[string]Regressors
}

// Report describes one build run: how many rows were produced, how many
// lacked full lag history, and which missing-lag policy applied to them.
type Report struct {
	Pairs            int       `json:"pairs"`
	Rows             int       `json:"rows"`
	SynthesizedRows  int       `json:"synthesized_rows"`
	IncompleteRows   int       `json:"incomplete_rows"`
	DroppedRows      int       `json:"dropped_rows"`
	MissingLagPolicy string    `json:"missing_lag_policy"`
	MinDate          time.Time `json:"min_date"`
	MaxDate          time.Time `json:"max_date"`
}

// NewBuilder creates a feature builder. topNItems bounds how many items
// per location are modeled (0 means no cap); policy is PolicyDrop or
// PolicyZeroFill for rows missing required lag history.
func NewBuilder(topNItems int, policy string) *Builder {
	if policy != PolicyDrop {
		policy = PolicyZeroFill
	}
	return &Builder{topNItems: topNItems, policy: policy}
}

// WithRegressors attaches external advisory regressors keyed by ISO date
// (2006-01-02). Missing dates are left zero-valued.
func (b *Builder) WithRegressors(byDate map[string]Regressors) *Builder {
	b.regressors = byDate
	return b
}

type seriesKey struct {
	locationID int64
	itemID     string
}

// Build produces one vector per day per (location, item) pair, gap days
// synthesized with zero demand. An item with no historical rows yields no
// vectors at all: cold-start estimation is the path for such items.
func (b *Builder) Build(obs []domain.DemandObservation) ([]Vector, Report) {
	report := Report{MissingLagPolicy: b.policy}
	if len(obs) == 0 {
		return nil, report
	}

	grouped := groupSeries(obs)
	if b.topNItems > 0 {
		grouped = capTopN(grouped, b.topNItems)
	}

	keys := make([]seriesKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].locationID != keys[j].locationID {
			return keys[i].locationID < keys[j].locationID
		}
		return keys[i].itemID < keys[j].itemID
	})

	var out []Vector
	for _, key := range keys {
		vecs, synth := b.buildSeries(key, grouped[key])
		report.SynthesizedRows += synth
		for i := range vecs {
			v := &vecs[i]
			if report.MinDate.IsZero() || v.Date.Before(report.MinDate) {
				report.MinDate = v.Date
			}
			if v.Date.After(report.MaxDate) {
				report.MaxDate = v.Date
			}
			if !v.HasFullLagHistory() {
				report.IncompleteRows++
				if b.policy == PolicyDrop {
					report.DroppedRows++
					continue
				}
			}
			out = append(out, *v)
		}
	}

	report.Pairs = len(grouped)
	report.Rows = len(out)
	return out, report
}

// BuildSeries builds vectors for a single already-grouped series, used by
// the sequence model and per-item inference paths.
func (b *Builder) BuildSeries(obs []domain.DemandObservation) []Vector {
	if len(obs) == 0 {
		return nil
	}
	key := seriesKey{locationID: obs[0].LocationID, itemID: obs[0].ItemID}
	vecs, _ := b.buildSeries(key, obs)
	if b.policy == PolicyDrop {
		kept := vecs[:0]
		for _, v := range vecs {
			if v.HasFullLagHistory() {
				kept = append(kept, v)
			}
		}
		vecs = kept
	}
	return vecs
}

func groupSeries(obs []domain.DemandObservation) map[seriesKey][]domain.DemandObservation {
	grouped := make(map[seriesKey][]domain.DemandObservation)
	for _, o := range obs {
		k := seriesKey{locationID: o.LocationID, itemID: o.ItemID}
		grouped[k] = append(grouped[k], o)
	}
	return grouped
}

// capTopN keeps the N highest-volume items per location.
func capTopN(grouped map[seriesKey][]domain.DemandObservation, n int) map[seriesKey][]domain.DemandObservation {
	type itemVolume struct {
		key   seriesKey
		total float64
	}
	byLocation := make(map[int64][]itemVolume)
	for k, rows := range grouped {
		total := 0.0
		for _, r := range rows {
			total += r.QuantitySold
		}
		byLocation[k.locationID] = append(byLocation[k.locationID], itemVolume{key: k, total: total})
	}

	kept := make(map[seriesKey][]domain.DemandObservation)
	for _, items := range byLocation {
		sort.Slice(items, func(i, j int) bool {
			if items[i].total != items[j].total {
				return items[i].total > items[j].total
			}
			return items[i].key.itemID < items[j].key.itemID
		})
		limit := n
		if limit > len(items) {
			limit = len(items)
		}
		for _, iv := range items[:limit] {
			kept[iv.key] = grouped[iv.key]
		}
	}
	return kept
}

// buildSeries computes the dense daily series for one (location, item)
// pair and derives all lag/rolling features from it. Returns the vectors
// and the count of synthesized zero-demand days.
func (b *Builder) buildSeries(key seriesKey, obs []domain.DemandObservation) ([]Vector, int) {
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	start := truncateDay(obs[0].Date)
	end := truncateDay(obs[len(obs)-1].Date)
	days := int(end.Sub(start).Hours()/24) + 1

	demand := make([]float64, days)
	observed := make([]bool, days)
	itemName := obs[0].ItemName
	unitPrice := obs[0].UnitPrice
	for _, o := range obs {
		idx := int(truncateDay(o.Date).Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		demand[idx] += o.QuantitySold
		observed[idx] = true
		if o.UnitPrice > 0 {
			unitPrice = o.UnitPrice
		}
		if o.ItemName != "" {
			itemName = o.ItemName
		}
	}

	synthesized := 0
	vecs := make([]Vector, days)
	for i := 0; i < days; i++ {
		if !observed[i] {
			synthesized++
		}
		v := Vector{
			LocationID:   key.locationID,
			ItemID:       key.itemID,
			ItemName:     itemName,
			Date:         start.AddDate(0, 0, i),
			QuantitySold: demand[i],
			UnitPrice:    unitPrice,
		}
		v.fillCalendar()
		b.fillHistory(&v, demand, i)
		b.fillRegressors(&v)
		vecs[i] = v
	}
	return vecs, synthesized
}

// fillHistory derives every lag and rolling feature for day i using only
// demand[0:i]. The rolling windows operate on the series shifted by one
// day, so day i never inspects its own observation.
func (b *Builder) fillHistory(v *Vector, demand []float64, i int) {
	setLag := func(offset int) (float64, bool) {
		if i-offset < 0 {
			return 0, false
		}
		return demand[i-offset], true
	}
	v.Lag1, v.HasLag1 = setLag(1)
	v.Lag7, v.HasLag7 = setLag(7)
	v.Lag14, v.HasLag14 = setLag(14)
	v.Lag28, v.HasLag28 = setLag(28)

	v.RollingMean7 = shiftedMean(demand, i, 7, 1)
	v.RollingMean14 = shiftedMean(demand, i, 14, 1)
	v.RollingMean30 = shiftedMean(demand, i, 30, 1)
	v.RollingStd7 = shiftedStd(demand, i, 7)
	v.RollingStd14 = shiftedStd(demand, i, 14)

	// Average of the four most recent matching weekdays.
	var sum float64
	var count int
	for w := 1; w <= weekdayLookback; w++ {
		if i-7*w >= 0 {
			sum += demand[i-7*w]
			count++
		}
	}
	if count > 0 {
		v.SameWeekdayAvg4 = sum / float64(count)
	}

	if i > 0 {
		total := 0.0
		for _, d := range demand[:i] {
			total += d
		}
		v.ExpandingMean = total / float64(i)
	}
}

func (b *Builder) fillRegressors(v *Vector) {
	if b.regressors == nil {
		return
	}
	r, ok := b.regressors[v.Date.Format("2006-01-02")]
	if !ok {
		return
	}
	v.TemperatureMax = r.TemperatureMax
	v.TemperatureMin = r.TemperatureMin
	v.PrecipitationMM = r.PrecipitationMM
	v.IsRainy = r.IsRainy
	v.IsHoliday = r.IsHoliday
	v.IsPromotion = r.IsPromotion
	v.DiscountPct = r.DiscountPct
}

// shiftedMean is the rolling mean of window w ending the day before i.
func shiftedMean(demand []float64, i, w, minPeriods int) float64 {
	lo := i - w
	if lo < 0 {
		lo = 0
	}
	n := i - lo
	if n < minPeriods {
		return 0
	}
	sum := 0.0
	for _, d := range demand[lo:i] {
		sum += d
	}
	return sum / float64(n)
}

// shiftedStd is the rolling sample standard deviation of window w ending
// the day before i. Needs at least two periods.
func shiftedStd(demand []float64, i, w int) float64 {
	lo := i - w
	if lo < 0 {
		lo = 0
	}
	n := i - lo
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, d := range demand[lo:i] {
		mean += d
	}
	mean /= float64(n)
	ss := 0.0
	for _, d := range demand[lo:i] {
		ss += (d - mean) * (d - mean)
	}
	return math.Sqrt(ss / float64(n-1))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
