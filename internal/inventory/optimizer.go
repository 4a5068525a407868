// internal/inventory/optimizer.go
package inventory

import (
	"math"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
)

// Optimizer turns a forecast and its uncertainty into operational prep
// and reorder recommendations. All formulas degrade to zero when the
// demand statistics are zero; nothing here divides by a measured value.
type Optimizer struct {
	ZScore       float64
	LeadTimeDays float64
}

func NewOptimizer(cfg config.ForecastConfig) *Optimizer {
	return &Optimizer{
		ZScore:       cfg.ZScore,
		LeadTimeDays: float64(cfg.LeadTimeDays),
	}
}

// SafetyStock is z * std * sqrt(lead time), the one-sided service-level
// buffer. Zero std yields exactly zero.
func (o *Optimizer) SafetyStock(demandStd float64) float64 {
	if demandStd <= 0 {
		return 0
	}
	return o.ZScore * demandStd * math.Sqrt(o.LeadTimeDays)
}

// ReorderPoint is expected lead-time demand plus the safety buffer.
func (o *Optimizer) ReorderPoint(avgDailyDemand, demandStd float64) float64 {
	if avgDailyDemand < 0 {
		avgDailyDemand = 0
	}
	return avgDailyDemand*o.LeadTimeDays + o.SafetyStock(demandStd)
}

// PrepQuantity is the whole-unit prep target: forecast plus safety stock,
// rounded up, never negative.
func (o *Optimizer) PrepQuantity(forecastDemand, demandStd float64) float64 {
	qty := math.Ceil(forecastDemand + o.SafetyStock(demandStd))
	if qty < 0 {
		return 0
	}
	return qty
}

// Recommend builds one prep recommendation from a forecast point.
func (o *Optimizer) Recommend(p domain.ForecastPoint) domain.PrepRecommendation {
	std := o.demandStd(p)
	return domain.PrepRecommendation{
		LocationID:     p.LocationID,
		ItemID:         p.ItemID,
		ItemName:       p.ItemName,
		Date:           p.Date,
		ForecastDemand: p.Ensemble,
		AvgDailyDemand: p.AvgDailyDemand,
		DemandStd:      std,
		SafetyStock:    o.SafetyStock(std),
		ReorderPoint:   o.ReorderPoint(p.AvgDailyDemand, std),
		RecommendedQty: o.PrepQuantity(p.Ensemble, std),
		AlertLevel:     domain.ClassifyAlertLevel(p.DemandCV),
	}
}

// Schedule converts a batch of dated forecast points into a day-by-day
// prep schedule, preserving the input order within each day.
func (o *Optimizer) Schedule(points []domain.ForecastPoint) []domain.PrepRecommendation {
	out := make([]domain.PrepRecommendation, 0, len(points))
	for _, p := range points {
		out = append(out, o.Recommend(p))
	}
	return out
}

// demandStd recovers the demand standard deviation from the safety stock
// carried on the point, falling back to cv * mean.
func (o *Optimizer) demandStd(p domain.ForecastPoint) float64 {
	if p.SafetyStockUnits > 0 && o.ZScore > 0 {
		return p.SafetyStockUnits / o.ZScore
	}
	return p.DemandCV * p.AvgDailyDemand
}
