// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/flowpos/forecast-engine/internal/domain"
)

// DemandRepository reads the append-only demand observation stream.
type DemandRepository interface {
	GetObservations(ctx context.Context, since time.Time, locationID int64) ([]domain.DemandObservation, error)
	GetItemObservations(ctx context.Context, itemID string, since time.Time) ([]domain.DemandObservation, error)
}

// CatalogRepository reads the SKU table and the BOM edge list.
type CatalogRepository interface {
	GetSKUs(ctx context.Context) ([]domain.SKU, error)
	GetBOMEdges(ctx context.Context) ([]domain.BOMEdge, error)
}

// PlanningRepository persists planning outputs and training run records.
type PlanningRepository interface {
	SavePrepRecommendations(ctx context.Context, recs []domain.PrepRecommendation) error
	SaveTrainingRun(ctx context.Context, run *domain.TrainingRun) error
	ListTrainingRuns(ctx context.Context, limit int) ([]domain.TrainingRun, error)
}
