// internal/bom/engine.go
package bom

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/pkg/logger"
)

// ProductDemand is one forecasted product entering an explosion run, with
// its total forecast quantity over the horizon.
type ProductDemand struct {
	ItemID   string
	ItemName string
	Quantity float64
}

// Engine walks the SKU component graph to convert product-level forecasts
// into ingredient-level demand. The graph is loaded once per run; Explode
// does no I/O and is safe for concurrent use.
type Engine struct {
	skus     map[int64]domain.SKU
	children map[int64][]domain.BOMEdge
	byItemID map[string]int64
	byTitle  map[string]int64
}

func NewEngine(skus []domain.SKU, edges []domain.BOMEdge) *Engine {
	e := &Engine{
		skus:     make(map[int64]domain.SKU, len(skus)),
		children: make(map[int64][]domain.BOMEdge),
		byItemID: make(map[string]int64),
		byTitle:  make(map[string]int64),
	}
	for _, s := range skus {
		e.skus[s.ID] = s
		if s.ItemID != "" {
			e.byItemID[s.ItemID] = s.ID
		}
		e.byTitle[strings.ToLower(s.Title)] = s.ID
	}
	for _, edge := range edges {
		e.children[edge.ParentSKUID] = append(e.children[edge.ParentSKUID], edge)
	}
	return e
}

// Explode distributes each product's forecast down the component graph and
// classifies every reached ingredient by stock coverage. Products without
// a linked SKU are excluded from the totals and listed in the summary; a
// cycle aborts only the traversal that hit it.
func (e *Engine) Explode(products []ProductDemand, horizonDays int) ([]domain.IngredientDemand, domain.ExplosionSummary) {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	summary := domain.ExplosionSummary{HorizonDays: horizonDays}
	log := logger.Component("bom")

	totals := make(map[int64]float64)
	drivers := make(map[int64]map[string]bool)
	cycles := make(map[int64]bool)

	for _, p := range products {
		if p.Quantity <= 0 {
			continue
		}
		skuID, ok := e.resolve(p)
		if !ok {
			summary.UnmappedProducts = append(summary.UnmappedProducts, p.ItemName)
			continue
		}

		// Accumulate into a scratch map first so a traversal aborted by a
		// cycle leaves the shared totals untouched.
		local := make(map[int64]float64)
		if err := e.distribute(skuID, p.Quantity, local, map[int64]bool{}); err != nil {
			log.Warn().Err(err).Str("product", p.ItemName).Int64("sku_id", skuID).Msg("explosion aborted")
			cycles[skuID] = true
			continue
		}
		summary.MappedProducts++
		for id, qty := range local {
			totals[id] += qty
			if drivers[id] == nil {
				drivers[id] = make(map[string]bool)
			}
			drivers[id][p.ItemName] = true
		}
	}

	for id := range cycles {
		summary.CycleSKUs = append(summary.CycleSKUs, id)
	}
	sort.Slice(summary.CycleSKUs, func(i, j int) bool { return summary.CycleSKUs[i] < summary.CycleSKUs[j] })

	out := make([]domain.IngredientDemand, 0, len(totals))
	for id, total := range totals {
		sku := e.skus[id]
		out = append(out, e.classify(sku, total, drivers[id], horizonDays))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ForecastDemand != out[j].ForecastDemand {
			return out[i].ForecastDemand > out[j].ForecastDemand
		}
		return out[i].SKUID < out[j].SKUID
	})
	return out, summary
}

// resolve maps a forecasted product to its SKU, first by linked item id,
// then by case-insensitive title.
func (e *Engine) resolve(p ProductDemand) (int64, bool) {
	if id, ok := e.byItemID[p.ItemID]; ok {
		return id, true
	}
	id, ok := e.byTitle[strings.ToLower(p.ItemName)]
	return id, ok
}

// distribute pushes qty units of demand for one SKU down to its leaves.
// Composite SKUs fan out as qty * quantity_per_unit per edge; raw SKUs and
// composites without edges accumulate directly.
func (e *Engine) distribute(skuID int64, qty float64, acc map[int64]float64, visiting map[int64]bool) error {
	if visiting[skuID] {
		return fmt.Errorf("sku %d: %w", skuID, domain.ErrBOMCycle)
	}

	sku, known := e.skus[skuID]
	edges := e.children[skuID]
	if !known || sku.Kind != domain.SKUComposite || len(edges) == 0 {
		acc[skuID] += qty
		return nil
	}

	visiting[skuID] = true
	for _, edge := range edges {
		if err := e.distribute(edge.ChildSKUID, qty*edge.QuantityPerUnit, acc, visiting); err != nil {
			return err
		}
	}
	delete(visiting, skuID)
	return nil
}

func (e *Engine) classify(sku domain.SKU, total float64, driverSet map[string]bool, horizonDays int) domain.IngredientDemand {
	dailyRate := total / float64(horizonDays)

	daysOfStock := 0.0
	if dailyRate > 0 {
		daysOfStock = sku.QuantityOnHand / dailyRate
	}

	urgency := domain.UrgencyOK
	switch {
	case daysOfStock < 2:
		urgency = domain.UrgencyCritical
	case daysOfStock < float64(horizonDays):
		urgency = domain.UrgencySoon
	case sku.QuantityOnHand < sku.LowStockThreshold:
		urgency = domain.UrgencyLowStock
	}

	reorder := math.Max(0, total*1.5-sku.QuantityOnHand)

	names := make([]string, 0, len(driverSet))
	for name := range driverSet {
		names = append(names, name)
	}
	sort.Strings(names)

	return domain.IngredientDemand{
		SKUID:            sku.ID,
		Title:            sku.Title,
		Unit:             sku.Unit,
		ForecastDemand:   total,
		CurrentStock:     sku.QuantityOnHand,
		DailyRate:        dailyRate,
		DaysOfStock:      daysOfStock,
		ReorderUrgency:   urgency,
		SuggestedReorder: reorder,
		DemandDrivers:    names,
	}
}
