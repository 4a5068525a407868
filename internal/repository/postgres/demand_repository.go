// internal/repository/postgres/demand_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/flowpos/forecast-engine/internal/domain"
)

type demandRepository struct {
	db *DB
}

func NewDemandRepository(db *DB) *demandRepository {
	return &demandRepository{db: db}
}

// GetObservations returns daily demand rows since the given date,
// aggregated per (location, item, day). locationID 0 means all locations.
func (r *demandRepository) GetObservations(ctx context.Context, since time.Time, locationID int64) ([]domain.DemandObservation, error) {
	query := `
		SELECT
			location_id,
			item_id,
			item_name,
			date,
			quantity_sold,
			revenue,
			order_count,
			CASE WHEN quantity_sold > 0 THEN revenue / quantity_sold ELSE 0 END AS unit_price
		FROM daily_demand
		WHERE date >= $1
		  AND ($2 = 0 OR location_id = $2)
		ORDER BY location_id, item_id, date
	`

	var rows []domain.DemandObservation
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, since, locationID); err != nil {
		return nil, fmt.Errorf("failed to get demand observations: %w", err)
	}
	return rows, nil
}

func (r *demandRepository) GetItemObservations(ctx context.Context, itemID string, since time.Time) ([]domain.DemandObservation, error) {
	query := `
		SELECT
			location_id,
			item_id,
			item_name,
			date,
			quantity_sold,
			revenue,
			order_count,
			CASE WHEN quantity_sold > 0 THEN revenue / quantity_sold ELSE 0 END AS unit_price
		FROM daily_demand
		WHERE item_id = $1 AND date >= $2
		ORDER BY date
	`

	var rows []domain.DemandObservation
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, itemID, since); err != nil {
		return nil, fmt.Errorf("failed to get item observations: %w", err)
	}
	return rows, nil
}
