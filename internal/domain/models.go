// internal/domain/models.go
package domain

import "time"

// DemandObservation is one immutable per-(location, item, day) sales fact.
// Produced by upstream ETL; the engine never mutates these rows.
type DemandObservation struct {
	LocationID   int64     `json:"location_id" db:"location_id"`
	ItemID       string    `json:"item_id" db:"item_id"`
	ItemName     string    `json:"item_name" db:"item_name"`
	Date         time.Time `json:"date" db:"date"`
	QuantitySold float64   `json:"quantity_sold" db:"quantity_sold"`
	Revenue      float64   `json:"revenue" db:"revenue"`
	OrderCount   int       `json:"order_count" db:"order_count"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
}

// ForecastPoint is the output of the ensemble for one (item, location, date).
// Re-forecasting produces a new point; existing points are never patched.
type ForecastPoint struct {
	ItemID            string     `json:"item_id"`
	ItemName          string     `json:"item_name"`
	LocationID        int64      `json:"location_id,omitempty"`
	Date              time.Time  `json:"date"`
	Balanced          float64    `json:"forecast_balanced"`
	WasteOptimized    float64    `json:"forecast_waste_optimized"`
	StockoutOptimized float64    `json:"forecast_stockout_optimized"`
	Ensemble          float64    `json:"forecast_ensemble"`
	Sequence          *float64   `json:"forecast_sequence,omitempty"`
	Lower             float64    `json:"lower_bound"`
	Upper             float64    `json:"upper_bound"`
	AvgDailyDemand    float64    `json:"avg_daily_demand"`
	DemandCV          float64    `json:"demand_cv"`
	DemandRisk        DemandRisk `json:"demand_risk"`
	IsPerishable      bool       `json:"is_perishable"`
	SafetyStockUnits  float64    `json:"safety_stock_units"`
	ModelSource       string     `json:"model_source"`
}

// SKU is a stock-keeping unit: either a raw ingredient or a composite
// product assembled from other SKUs via BOM edges.
type SKU struct {
	ID                int64   `json:"sku_id" db:"id"`
	Title             string  `json:"title" db:"title"`
	QuantityOnHand    float64 `json:"quantity_on_hand" db:"quantity_on_hand"`
	LowStockThreshold float64 `json:"low_stock_threshold" db:"low_stock_threshold"`
	Unit              string  `json:"unit" db:"unit"`
	Kind              SKUKind `json:"kind" db:"kind"`
	ItemID            string  `json:"item_id,omitempty" db:"item_id"`
}

// BOMEdge links a composite SKU to one of its components.
type BOMEdge struct {
	ParentSKUID     int64   `json:"parent_sku_id" db:"parent_sku_id"`
	ChildSKUID      int64   `json:"child_sku_id" db:"child_sku_id"`
	QuantityPerUnit float64 `json:"quantity_per_unit" db:"quantity_per_unit"`
}

// IngredientDemand is one ingredient-level row of an explosion run.
type IngredientDemand struct {
	SKUID              int64          `json:"sku_id"`
	Title              string         `json:"title"`
	Unit               string         `json:"unit"`
	ForecastDemand     float64        `json:"forecast_demand"`
	CurrentStock       float64        `json:"current_stock"`
	DailyRate          float64        `json:"daily_consumption_rate"`
	DaysOfStock        float64        `json:"days_of_stock_remaining"`
	ReorderUrgency     ReorderUrgency `json:"reorder_urgency"`
	SuggestedReorder   float64        `json:"suggested_reorder_qty"`
	DemandDrivers      []string       `json:"demand_drivers"`
}

// ExplosionSummary accompanies every ingredient-forecast response so that
// unmapped products are listed, not silently dropped.
type ExplosionSummary struct {
	HorizonDays      int      `json:"horizon_days"`
	MappedProducts   int      `json:"mapped_products"`
	UnmappedProducts []string `json:"unmapped_products"`
	CycleSKUs        []int64  `json:"cycle_skus,omitempty"`
}

// PrepRecommendation is regenerated on each planning run.
type PrepRecommendation struct {
	LocationID     int64      `json:"location_id" db:"location_id"`
	ItemID         string     `json:"item_id" db:"item_id"`
	ItemName       string     `json:"item_name" db:"item_name"`
	Date           time.Time  `json:"date" db:"date"`
	ForecastDemand float64    `json:"forecast_demand" db:"forecast_demand"`
	AvgDailyDemand float64    `json:"avg_daily_demand" db:"avg_daily_demand"`
	DemandStd      float64    `json:"demand_std" db:"demand_std"`
	SafetyStock    float64    `json:"safety_stock" db:"safety_stock"`
	ReorderPoint   float64    `json:"reorder_point" db:"reorder_point"`
	RecommendedQty float64    `json:"recommended_qty" db:"recommended_qty"`
	AlertLevel     AlertLevel `json:"alert_level" db:"alert_level"`
}

// CostEvaluation scores one (actual, predicted) series under one weighting
// scheme. Pure function of its inputs; recomputed on demand.
type CostEvaluation struct {
	ModelName        string  `json:"model_name"`
	WeightingScheme  string  `json:"weighting_scheme"`
	WasteCost        float64 `json:"waste_cost"`
	StockoutCost     float64 `json:"stockout_cost"`
	TotalCost        float64 `json:"total_cost"`
	MAE              float64 `json:"mae"`
	RMSE             float64 `json:"rmse"`
	WMAPE            float64 `json:"wmape"`
	ForecastAccuracy float64 `json:"forecast_accuracy_pct"`
	OverstockUnits   float64 `json:"overstock_units"`
	UnderstockUnits  float64 `json:"understock_units"`
	Samples          int     `json:"n_samples"`
}

// ColdStartEstimate is the engine's answer for an item with no history.
type ColdStartEstimate struct {
	ProductName     string              `json:"new_product"`
	EstimatedDaily  float64             `json:"estimated_daily_demand"`
	RangeLow        float64             `json:"demand_range_low"`
	RangeHigh       float64             `json:"demand_range_high"`
	Confidence      string              `json:"confidence"`
	Method          string              `json:"method"`
	SimilarProducts []ComparableProduct `json:"similar_products"`
	Note            string              `json:"note"`
}

// ComparableProduct is one admissible cold-start neighbour.
type ComparableProduct struct {
	ItemName       string  `json:"item"`
	AvgDailyDemand float64 `json:"avg_daily_demand"`
	ActiveDays     int     `json:"active_days"`
}

// ForecastFilter narrows a forecast query.
type ForecastFilter struct {
	ItemFilter string `json:"item_filter"`
	LocationID int64  `json:"location_id"`
	DaysAhead  int    `json:"days_ahead"`
	TopN       int    `json:"top_n"`
}

// BatchMetadata reports per-item degradations without aborting the batch.
type BatchMetadata struct {
	SkippedItems    []SkippedItem `json:"skipped_items,omitempty"`
	DegradedContext bool          `json:"degraded_context,omitempty"`
	ModelSource     string        `json:"model_source"`
}

// SkippedItem records why one item was excluded from a batch response.
type SkippedItem struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// TrainingRun records one explicit model training job.
type TrainingRun struct {
	ID               int64      `json:"id" db:"id"`
	ModelIdentity    string     `json:"model_identity" db:"model_identity"`
	Status           string     `json:"status" db:"status"`
	TrainingRows     int        `json:"training_rows" db:"training_rows"`
	HoldoutRows      int        `json:"holdout_rows" db:"holdout_rows"`
	MissingLagPolicy string     `json:"missing_lag_policy" db:"missing_lag_policy"`
	HoldoutWMAPE     float64    `json:"holdout_wmape" db:"holdout_wmape"`
	ArtifactKey      string     `json:"artifact_key" db:"artifact_key"`
	ErrorMessage     string     `json:"error_message" db:"error_message"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at" db:"completed_at"`
}
