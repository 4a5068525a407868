// internal/repository/postgres/catalog_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/flowpos/forecast-engine/internal/domain"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetSKUs(ctx context.Context) ([]domain.SKU, error) {
	query := `
		SELECT id, title, quantity_on_hand, low_stock_threshold, unit, kind,
		       COALESCE(item_id, '') AS item_id
		FROM skus
		ORDER BY id
	`

	var skus []domain.SKU
	if err := sqlx.SelectContext(ctx, r.db, &skus, query); err != nil {
		return nil, fmt.Errorf("failed to get skus: %w", err)
	}
	return skus, nil
}

func (r *catalogRepository) GetBOMEdges(ctx context.Context) ([]domain.BOMEdge, error) {
	query := `
		SELECT parent_sku_id, child_sku_id, quantity_per_unit
		FROM bom_edges
		ORDER BY parent_sku_id, child_sku_id
	`

	var edges []domain.BOMEdge
	if err := sqlx.SelectContext(ctx, r.db, &edges, query); err != nil {
		return nil, fmt.Errorf("failed to get bom edges: %w", err)
	}
	return edges, nil
}
