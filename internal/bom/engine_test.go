// internal/bom/engine_test.go
package bom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/domain"
)

func burgerCatalog() ([]domain.SKU, []domain.BOMEdge) {
	skus := []domain.SKU{
		{ID: 1, Title: "Burger", Kind: domain.SKUComposite, ItemID: "burger"},
		{ID: 2, Title: "Bun", Kind: domain.SKURaw, Unit: "pcs", QuantityOnHand: 200},
		{ID: 3, Title: "Patty", Kind: domain.SKURaw, Unit: "pcs", QuantityOnHand: 40},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 1},
		{ParentSKUID: 1, ChildSKUID: 3, QuantityPerUnit: 1},
	}
	return skus, edges
}

func findIngredient(t *testing.T, out []domain.IngredientDemand, skuID int64) domain.IngredientDemand {
	t.Helper()
	for _, d := range out {
		if d.SKUID == skuID {
			return d
		}
	}
	t.Fatalf("sku %d not in explosion output", skuID)
	return domain.IngredientDemand{}
}

func TestExplodeSingleLevel(t *testing.T) {
	e := NewEngine(burgerCatalog())

	out, summary := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 50},
	}, 7)

	require.Len(t, out, 2)
	assert.Equal(t, 1, summary.MappedProducts)
	assert.Empty(t, summary.UnmappedProducts)

	bun := findIngredient(t, out, 2)
	assert.InDelta(t, 50.0, bun.ForecastDemand, 1e-9)
	assert.Equal(t, []string{"Burger"}, bun.DemandDrivers)

	patty := findIngredient(t, out, 3)
	assert.InDelta(t, 50.0, patty.ForecastDemand, 1e-9)
}

func TestExplodeMultiLevel(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Combo Meal", Kind: domain.SKUComposite, ItemID: "combo"},
		{ID: 2, Title: "Burger", Kind: domain.SKUComposite},
		{ID: 3, Title: "Fries", Kind: domain.SKURaw, Unit: "g"},
		{ID: 4, Title: "Bun", Kind: domain.SKURaw, Unit: "pcs"},
		{ID: 5, Title: "Patty", Kind: domain.SKURaw, Unit: "pcs"},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 1},
		{ParentSKUID: 1, ChildSKUID: 3, QuantityPerUnit: 150},
		{ParentSKUID: 2, ChildSKUID: 4, QuantityPerUnit: 1},
		{ParentSKUID: 2, ChildSKUID: 5, QuantityPerUnit: 2},
	}
	e := NewEngine(skus, edges)

	out, _ := e.Explode([]ProductDemand{
		{ItemID: "combo", ItemName: "Combo Meal", Quantity: 10},
	}, 7)

	assert.InDelta(t, 1500.0, findIngredient(t, out, 3).ForecastDemand, 1e-9)
	assert.InDelta(t, 10.0, findIngredient(t, out, 4).ForecastDemand, 1e-9)
	assert.InDelta(t, 20.0, findIngredient(t, out, 5).ForecastDemand, 1e-9)
}

func TestExplodeAccumulatesAcrossParents(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Burger", Kind: domain.SKUComposite, ItemID: "burger"},
		{ID: 2, Title: "Cheeseburger", Kind: domain.SKUComposite, ItemID: "cheeseburger"},
		{ID: 3, Title: "Bun", Kind: domain.SKURaw},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 3, QuantityPerUnit: 1},
		{ParentSKUID: 2, ChildSKUID: 3, QuantityPerUnit: 1},
	}
	e := NewEngine(skus, edges)

	out, summary := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 30},
		{ItemID: "cheeseburger", ItemName: "Cheeseburger", Quantity: 20},
	}, 7)

	assert.Equal(t, 2, summary.MappedProducts)
	bun := findIngredient(t, out, 3)
	assert.InDelta(t, 50.0, bun.ForecastDemand, 1e-9)
	assert.Equal(t, []string{"Burger", "Cheeseburger"}, bun.DemandDrivers)
}

func TestExplodeCycleAbortsOnlyThatProduct(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Broken", Kind: domain.SKUComposite, ItemID: "broken"},
		{ID: 2, Title: "Loop", Kind: domain.SKUComposite},
		{ID: 3, Title: "Burger", Kind: domain.SKUComposite, ItemID: "burger"},
		{ID: 4, Title: "Bun", Kind: domain.SKURaw},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 1},
		{ParentSKUID: 2, ChildSKUID: 1, QuantityPerUnit: 1},
		{ParentSKUID: 3, ChildSKUID: 4, QuantityPerUnit: 1},
	}
	e := NewEngine(skus, edges)

	out, summary := e.Explode([]ProductDemand{
		{ItemID: "broken", ItemName: "Broken", Quantity: 10},
		{ItemID: "burger", ItemName: "Burger", Quantity: 25},
	}, 7)

	assert.Equal(t, []int64{1}, summary.CycleSKUs)
	assert.Equal(t, 1, summary.MappedProducts)

	// The aborted traversal must not leak partial quantities.
	require.Len(t, out, 1)
	assert.InDelta(t, 25.0, findIngredient(t, out, 4).ForecastDemand, 1e-9)
}

func TestExplodeUnmappedProductsListed(t *testing.T) {
	e := NewEngine(burgerCatalog())

	out, summary := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 10},
		{ItemID: "ghost", ItemName: "Ghost Item", Quantity: 5},
	}, 7)

	assert.Equal(t, []string{"Ghost Item"}, summary.UnmappedProducts)
	assert.Equal(t, 1, summary.MappedProducts)
	assert.Len(t, out, 2)
}

func TestExplodeResolvesByTitle(t *testing.T) {
	e := NewEngine(burgerCatalog())

	_, summary := e.Explode([]ProductDemand{
		{ItemID: "pos-77", ItemName: "BURGER", Quantity: 10},
	}, 7)
	assert.Equal(t, 1, summary.MappedProducts)
}

func TestExplodeSkipsNonPositiveQuantities(t *testing.T) {
	e := NewEngine(burgerCatalog())

	out, summary := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 0},
	}, 7)
	assert.Empty(t, out)
	assert.Zero(t, summary.MappedProducts)
	assert.Empty(t, summary.UnmappedProducts)
}

func TestClassifyUrgency(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Burger", Kind: domain.SKUComposite, ItemID: "burger"},
		{ID: 2, Title: "Bun", Kind: domain.SKURaw, QuantityOnHand: 5},
		{ID: 3, Title: "Patty", Kind: domain.SKURaw, QuantityOnHand: 30},
		{ID: 4, Title: "Pickle", Kind: domain.SKURaw, QuantityOnHand: 500, LowStockThreshold: 600},
		{ID: 5, Title: "Ketchup", Kind: domain.SKURaw, QuantityOnHand: 500, LowStockThreshold: 100},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 1},
		{ParentSKUID: 1, ChildSKUID: 3, QuantityPerUnit: 1},
		{ParentSKUID: 1, ChildSKUID: 4, QuantityPerUnit: 1},
		{ParentSKUID: 1, ChildSKUID: 5, QuantityPerUnit: 1},
	}
	e := NewEngine(skus, edges)

	out, _ := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 70},
	}, 7)

	// Daily rate 10: bun covers 0.5 days, patty 3 days, pickle 50 days but
	// sits under its low stock threshold, ketchup 50 days and healthy.
	assert.Equal(t, domain.UrgencyCritical, findIngredient(t, out, 2).ReorderUrgency)
	assert.Equal(t, domain.UrgencySoon, findIngredient(t, out, 3).ReorderUrgency)
	assert.Equal(t, domain.UrgencyLowStock, findIngredient(t, out, 4).ReorderUrgency)
	assert.Equal(t, domain.UrgencyOK, findIngredient(t, out, 5).ReorderUrgency)

	bun := findIngredient(t, out, 2)
	assert.InDelta(t, 70*1.5-5, bun.SuggestedReorder, 1e-9)
	assert.InDelta(t, 0.5, bun.DaysOfStock, 1e-9)
}

func TestClassifyReorderFlooredAtZero(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Burger", Kind: domain.SKUComposite, ItemID: "burger"},
		{ID: 2, Title: "Bun", Kind: domain.SKURaw, QuantityOnHand: 10000},
	}
	edges := []domain.BOMEdge{{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 1}}
	e := NewEngine(skus, edges)

	out, _ := e.Explode([]ProductDemand{
		{ItemID: "burger", ItemName: "Burger", Quantity: 10},
	}, 7)
	assert.Zero(t, findIngredient(t, out, 2).SuggestedReorder)
}

func TestExplodeSortsByDemandDesc(t *testing.T) {
	skus := []domain.SKU{
		{ID: 1, Title: "Combo", Kind: domain.SKUComposite, ItemID: "combo"},
		{ID: 2, Title: "Fries", Kind: domain.SKURaw},
		{ID: 3, Title: "Bun", Kind: domain.SKURaw},
	}
	edges := []domain.BOMEdge{
		{ParentSKUID: 1, ChildSKUID: 2, QuantityPerUnit: 150},
		{ParentSKUID: 1, ChildSKUID: 3, QuantityPerUnit: 1},
	}
	e := NewEngine(skus, edges)

	out, _ := e.Explode([]ProductDemand{
		{ItemID: "combo", ItemName: "Combo", Quantity: 10},
	}, 7)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].SKUID)
	assert.Equal(t, int64(3), out[1].SKUID)
}
