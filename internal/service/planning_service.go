package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowpos/forecast-engine/internal/bom"
	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/inventory"
	"github.com/flowpos/forecast-engine/internal/repository"
)

// PlanningService turns forecasts into ingredient demand and prep
// recommendations.
type PlanningService struct {
	forecasts *ForecastService
	catalog   repository.CatalogRepository
	planning  repository.PlanningRepository
	optimizer *inventory.Optimizer
}

func NewPlanningService(
	cfg *config.Config,
	forecasts *ForecastService,
	catalog repository.CatalogRepository,
	planning repository.PlanningRepository,
) *PlanningService {
	return &PlanningService{
		forecasts: forecasts,
		catalog:   catalog,
		planning:  planning,
		optimizer: inventory.NewOptimizer(cfg.Forecast),
	}
}

// IngredientForecast explodes the product-level forecast over the horizon
// into per-ingredient demand, stock coverage and reorder urgency.
func (s *PlanningService) IngredientForecast(ctx context.Context, daysAhead, topN int) ([]domain.IngredientDemand, domain.ExplosionSummary, error) {
	points, _, err := s.forecasts.Forecast(ctx, domain.ForecastFilter{DaysAhead: daysAhead, TopN: topN})
	if err != nil {
		return nil, domain.ExplosionSummary{}, err
	}

	skus, err := s.catalog.GetSKUs(ctx)
	if err != nil {
		return nil, domain.ExplosionSummary{}, err
	}
	edges, err := s.catalog.GetBOMEdges(ctx)
	if err != nil {
		return nil, domain.ExplosionSummary{}, err
	}

	horizon := daysAhead
	if horizon <= 0 && len(points) > 0 {
		horizon = countDates(points)
	}

	engine := bom.NewEngine(skus, edges)
	ingredients, summary := engine.Explode(productTotals(points), horizon)
	return ingredients, summary, nil
}

// PrepRecommendations generates, persists and returns the prep schedule
// for the horizon. Persistence failure is logged, not returned; the
// recommendations themselves are still good.
func (s *PlanningService) PrepRecommendations(ctx context.Context, filter domain.ForecastFilter) ([]domain.PrepRecommendation, domain.BatchMetadata, error) {
	points, meta, err := s.forecasts.Forecast(ctx, filter)
	if err != nil {
		return nil, domain.BatchMetadata{}, err
	}

	recs := s.optimizer.Schedule(points)
	if s.planning != nil {
		if err := s.planning.SavePrepRecommendations(ctx, recs); err != nil {
			log.Warn().Err(err).Msg("planning: failed to persist prep recommendations")
		}
	}
	return recs, meta, nil
}

// productTotals sums each item's ensemble estimate across the forecast
// horizon.
func productTotals(points []domain.ForecastPoint) []bom.ProductDemand {
	totals := make(map[string]*bom.ProductDemand)
	var order []string
	for _, p := range points {
		pd := totals[p.ItemID]
		if pd == nil {
			pd = &bom.ProductDemand{ItemID: p.ItemID, ItemName: p.ItemName}
			totals[p.ItemID] = pd
			order = append(order, p.ItemID)
		}
		pd.Quantity += p.Ensemble
	}

	out := make([]bom.ProductDemand, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	return out
}

func countDates(points []domain.ForecastPoint) int {
	seen := make(map[time.Time]bool)
	for _, p := range points {
		seen[p.Date] = true
	}
	return len(seen)
}
