// internal/repository/postgres/planning_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/flowpos/forecast-engine/internal/domain"
)

type planningRepository struct {
	db *DB
}

func NewPlanningRepository(db *DB) *planningRepository {
	return &planningRepository{db: db}
}

// SavePrepRecommendations replaces the recommendation rows for each
// (location, item, date) in the batch. Planning runs regenerate rather
// than patch.
func (r *planningRepository) SavePrepRecommendations(ctx context.Context, recs []domain.PrepRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO prep_recommendations (
				location_id, item_id, item_name, date, forecast_demand,
				avg_daily_demand, demand_std, safety_stock, reorder_point,
				recommended_qty, alert_level, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			ON CONFLICT (location_id, item_id, date)
			DO UPDATE SET
				forecast_demand = EXCLUDED.forecast_demand,
				avg_daily_demand = EXCLUDED.avg_daily_demand,
				demand_std = EXCLUDED.demand_std,
				safety_stock = EXCLUDED.safety_stock,
				reorder_point = EXCLUDED.reorder_point,
				recommended_qty = EXCLUDED.recommended_qty,
				alert_level = EXCLUDED.alert_level,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range recs {
			_, err := stmt.ExecContext(
				ctx,
				rec.LocationID,
				rec.ItemID,
				rec.ItemName,
				rec.Date,
				rec.ForecastDemand,
				rec.AvgDailyDemand,
				rec.DemandStd,
				rec.SafetyStock,
				rec.ReorderPoint,
				rec.RecommendedQty,
				rec.AlertLevel,
			)
			if err != nil {
				return fmt.Errorf("failed to insert prep recommendation: %w", err)
			}
		}
		return nil
	})
}

func (r *planningRepository) SaveTrainingRun(ctx context.Context, run *domain.TrainingRun) error {
	query := `
		INSERT INTO training_runs (
			model_identity, status, training_rows, holdout_rows,
			missing_lag_policy, holdout_wmape, artifact_key, error_message,
			started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		run.ModelIdentity,
		run.Status,
		run.TrainingRows,
		run.HoldoutRows,
		run.MissingLagPolicy,
		run.HoldoutWMAPE,
		run.ArtifactKey,
		run.ErrorMessage,
		run.StartedAt,
		run.CompletedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

func (r *planningRepository) ListTrainingRuns(ctx context.Context, limit int) ([]domain.TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, model_identity, status, training_rows, holdout_rows,
		       missing_lag_policy, holdout_wmape, artifact_key,
		       COALESCE(error_message, '') AS error_message,
		       started_at, completed_at
		FROM training_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	var runs []domain.TrainingRun
	if err := sqlx.SelectContext(ctx, r.db, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	return runs, nil
}
