package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowpos/forecast-engine/internal/cache"
	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/forecast"
	"github.com/flowpos/forecast-engine/internal/repository"
)

// DefaultModelIdentity names the single production ensemble. Identities
// exist so per-location or per-tenant models can train independently.
const DefaultModelIdentity = "demand_ensemble"

// trainingHistoryDays is longer than the inference window so the tree
// model sees at least two full seasons of weekday structure.
const trainingHistoryDays = 365

// TrainingService runs explicit training jobs and reports model status.
type TrainingService struct {
	registry *forecast.Registry
	trainer  *forecast.Trainer
	demand   repository.DemandRepository
	planning repository.PlanningRepository
	cache    cache.ForecastCache
}

func NewTrainingService(
	cfg *config.Config,
	registry *forecast.Registry,
	store forecast.ArtifactStore,
	demand repository.DemandRepository,
	planning repository.PlanningRepository,
	cacheImpl cache.ForecastCache,
) *TrainingService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &TrainingService{
		registry: registry,
		trainer:  forecast.NewTrainer(cfg.Forecast, registry, store),
		demand:   demand,
		planning: planning,
		cache:    cacheImpl,
	}
}

// Train loads the full training history and runs one job for the
// identity. The training run row is persisted whether the job succeeded
// or not; cached forecasts are invalidated after a successful swap.
func (s *TrainingService) Train(ctx context.Context, identity string) (*domain.TrainingRun, error) {
	if identity == "" {
		identity = DefaultModelIdentity
	}

	obs, err := s.demand.GetObservations(ctx, time.Now().AddDate(0, 0, -trainingHistoryDays), 0)
	if err != nil {
		return nil, err
	}

	run, trainErr := s.trainer.Train(ctx, identity, obs)
	if run != nil && s.planning != nil {
		if err := s.planning.SaveTrainingRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("training: failed to persist run record")
		}
	}
	if trainErr != nil {
		return run, trainErr
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("training: forecast cache invalidation failed")
	}
	return run, nil
}

// Restore loads a persisted artifact at startup.
func (s *TrainingService) Restore(ctx context.Context, key string) error {
	return s.trainer.Restore(ctx, key)
}

// ModelStatus describes the currently served snapshot.
type ModelStatus struct {
	Loaded       bool                 `json:"loaded"`
	Identity     string               `json:"identity,omitempty"`
	TrainedAt    *time.Time           `json:"trained_at,omitempty"`
	TrainingRows int                  `json:"training_rows,omitempty"`
	HoldoutWMAPE float64              `json:"holdout_wmape,omitempty"`
	HasSequence  bool                 `json:"has_sequence_model"`
	Training     bool                 `json:"training_in_progress"`
	RecentRuns   []domain.TrainingRun `json:"recent_runs,omitempty"`
}

func (s *TrainingService) Status(ctx context.Context, identity string) ModelStatus {
	if identity == "" {
		identity = DefaultModelIdentity
	}
	status := ModelStatus{Training: s.registry.Training(identity)}

	if snap := s.registry.Current(); snap != nil {
		status.Loaded = true
		status.Identity = snap.Identity
		status.TrainedAt = &snap.TrainedAt
		status.TrainingRows = snap.TrainedOnRows
		status.HoldoutWMAPE = snap.HoldoutWMAPE
		status.HasSequence = snap.Sequence != nil
	}

	if s.planning != nil {
		runs, err := s.planning.ListTrainingRuns(ctx, 10)
		if err != nil {
			log.Warn().Err(err).Msg("training: failed to list recent runs")
		} else {
			status.RecentRuns = runs
		}
	}
	return status
}
