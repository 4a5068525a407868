// internal/forecast/coldstart.go
package forecast

import (
	"sort"
	"strings"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
)

// ColdStartEstimator sizes initial demand for a product with no sales
// history by averaging comparable existing products, found by name
// keyword overlap. Estimates are always tagged low confidence; they are
// a starting point for the first weeks, not a forecast.
type ColdStartEstimator struct {
	cfg config.ColdStartConfig
}

func NewColdStartEstimator(cfg config.ColdStartConfig) *ColdStartEstimator {
	return &ColdStartEstimator{cfg: cfg}
}

type itemStats struct {
	name       string
	total      float64
	activeDays int
}

func (s itemStats) avgDaily() float64 {
	if s.activeDays == 0 {
		return 0
	}
	return s.total / float64(s.activeDays)
}

// Estimate returns a shrunk, demand-weighted average over comparable
// products, matched on name keywords or the optional category. With no
// matches it falls back to the average across all products with enough
// history; with no usable history at all it returns ErrNoObservations.
func (c *ColdStartEstimator) Estimate(productName, category string, obs []domain.DemandObservation) (*domain.ColdStartEstimate, error) {
	stats := aggregateByItem(obs)
	if len(stats) == 0 {
		return nil, domain.ErrNoObservations
	}

	keywords := nameKeywords(productName, c.cfg.MaxKeywords)
	if category != "" {
		keywords = append(keywords, strings.ToLower(category))
	}
	comparables := c.matchComparables(keywords, stats)

	if len(comparables) == 0 {
		return c.globalFallback(productName, stats)
	}

	// Weight by total observed demand so high-volume neighbours dominate,
	// then clamp to the unweighted mean so one outlier cannot inflate the
	// estimate past what a plain average would give.
	var weightedSum, weightTotal, plainSum float64
	for _, cp := range comparables {
		w := cp.AvgDailyDemand * float64(cp.ActiveDays)
		weightedSum += cp.AvgDailyDemand * w
		weightTotal += w
		plainSum += cp.AvgDailyDemand
	}
	plainAvg := plainSum / float64(len(comparables))
	weightedAvg := plainAvg
	if weightTotal > 0 {
		weightedAvg = weightedSum / weightTotal
	}
	if weightedAvg > plainAvg {
		weightedAvg = plainAvg
	}

	estimate := weightedAvg * c.cfg.Shrink
	shown := comparables
	if len(shown) > 10 {
		shown = shown[:10]
	}
	return &domain.ColdStartEstimate{
		ProductName:     productName,
		EstimatedDaily:  estimate,
		RangeLow:        estimate * 0.6,
		RangeHigh:       estimate * 1.5,
		Confidence:      "low",
		Method:          "keyword_similarity",
		SimilarProducts: shown,
		Note:            "estimate from similar products, monitor actual sales for the first two weeks",
	}, nil
}

func (c *ColdStartEstimator) matchComparables(keywords []string, stats map[string]itemStats) []domain.ComparableProduct {
	if len(keywords) == 0 {
		return nil
	}

	var out []domain.ComparableProduct
	for _, s := range stats {
		if s.activeDays < c.cfg.MinActiveDays {
			continue
		}
		lower := strings.ToLower(s.name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, domain.ComparableProduct{
					ItemName:       s.name,
					AvgDailyDemand: s.avgDaily(),
					ActiveDays:     s.activeDays,
				})
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgDailyDemand != out[j].AvgDailyDemand {
			return out[i].AvgDailyDemand > out[j].AvgDailyDemand
		}
		return out[i].ItemName < out[j].ItemName
	})
	if len(out) > c.cfg.MaxComparable {
		out = out[:c.cfg.MaxComparable]
	}
	return out
}

// globalFallback averages every product with at least ten active days.
func (c *ColdStartEstimator) globalFallback(productName string, stats map[string]itemStats) (*domain.ColdStartEstimate, error) {
	const minDays = 10

	var sum float64
	var n int
	for _, s := range stats {
		if s.activeDays < minDays {
			continue
		}
		sum += s.avgDaily()
		n++
	}
	if n == 0 {
		return nil, domain.ErrInsufficientHistory
	}

	estimate := (sum / float64(n)) * c.cfg.Shrink
	return &domain.ColdStartEstimate{
		ProductName:    productName,
		EstimatedDaily: estimate,
		RangeLow:       estimate * 0.6,
		RangeHigh:      estimate * 1.5,
		Confidence:     "low",
		Method:         "global_top_products",
		Note:           "no comparable products found, estimate from the overall catalog average",
	}, nil
}

func aggregateByItem(obs []domain.DemandObservation) map[string]itemStats {
	daysSeen := make(map[string]map[int64]bool)
	stats := make(map[string]itemStats)
	for _, o := range obs {
		s := stats[o.ItemID]
		if s.name == "" {
			s.name = o.ItemName
		}
		s.total += o.QuantitySold

		days := daysSeen[o.ItemID]
		if days == nil {
			days = make(map[int64]bool)
			daysSeen[o.ItemID] = days
		}
		day := truncateDay(o.Date).Unix()
		if !days[day] {
			days[day] = true
			s.activeDays++
		}
		stats[o.ItemID] = s
	}
	return stats
}

// nameKeywords lowercases and tokenizes a product name, keeping up to
// maxKeywords tokens longer than two characters.
func nameKeywords(name string, maxKeywords int) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tok = strings.Trim(tok, ".,()-_/")
		if len(tok) <= 2 {
			continue
		}
		out = append(out, tok)
		if maxKeywords > 0 && len(out) >= maxKeywords {
			break
		}
	}
	return out
}
