// internal/forecast/trainer.go
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
	"github.com/flowpos/forecast-engine/pkg/logger"
)

// ArtifactStore persists serialized model snapshots between restarts.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// artifact is the on-disk form of a trained snapshot.
type artifact struct {
	Identity     string                    `json:"identity"`
	TrainedAt    time.Time                 `json:"trained_at"`
	TrainingRows int                       `json:"training_rows"`
	HoldoutWMAPE float64                   `json:"holdout_wmape"`
	Balanced     *GradientBoostedRegressor `json:"balanced"`
	Sequence     *SequenceRegressor        `json:"sequence,omitempty"`
}

// Trainer runs explicit training jobs and swaps the result into the
// registry. At most one run per model identity is in flight; a second
// request while one runs fails fast with ErrTrainingInFlight.
type Trainer struct {
	cfg      config.ForecastConfig
	registry *Registry
	store    ArtifactStore
}

// NewTrainer accepts a nil store, in which case snapshots live only in
// memory.
func NewTrainer(cfg config.ForecastConfig, registry *Registry, store ArtifactStore) *Trainer {
	return &Trainer{cfg: cfg, registry: registry, store: store}
}

// Train builds training features with the drop policy for incomplete lag
// windows, fits the tree and sequence models concurrently, evaluates the
// balanced model on a date-ordered holdout tail, persists the artifact
// and installs the new snapshot.
func (t *Trainer) Train(ctx context.Context, identity string, obs []domain.DemandObservation) (*domain.TrainingRun, error) {
	release, ok := t.registry.BeginTraining(identity)
	if !ok {
		return nil, fmt.Errorf("train %s: %w", identity, domain.ErrTrainingInFlight)
	}
	defer release()

	log := logger.Component("trainer")
	run := &domain.TrainingRun{
		ModelIdentity:    identity,
		Status:           "running",
		MissingLagPolicy: features.PolicyDrop,
		StartedAt:        time.Now(),
	}

	builder := features.NewBuilder(t.cfg.TopNItems, features.PolicyDrop)
	vecs, report := builder.Build(obs)
	if len(vecs) == 0 {
		run.Status = "failed"
		run.ErrorMessage = domain.ErrNoObservations.Error()
		return run, fmt.Errorf("train %s: %w", identity, domain.ErrNoObservations)
	}

	trainRows, holdoutRows := splitHoldout(vecs)
	run.TrainingRows = len(trainRows)
	run.HoldoutRows = len(holdoutRows)
	log.Info().
		Str("identity", identity).
		Int("training_rows", len(trainRows)).
		Int("holdout_rows", len(holdoutRows)).
		Int("dropped_rows", report.DroppedRows).
		Msg("training started")

	balanced := NewGradientBoostedRegressor()
	sequence := NewSequenceRegressor(t.cfg.SequenceLength)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return balanced.Fit(trainRows) })
	g.Go(func() error {
		if err := sequence.Fit(trainRows); err != nil {
			if errors.Is(err, domain.ErrInsufficientHistory) {
				log.Warn().Err(err).Msg("sequence model skipped")
				return nil
			}
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		run.Status = "failed"
		run.ErrorMessage = err.Error()
		return run, fmt.Errorf("train %s: %w", identity, err)
	}

	run.HoldoutWMAPE = holdoutWMAPE(balanced, holdoutRows)

	snap := &Snapshot{
		Identity:       identity,
		Balanced:       balanced,
		WasteOptimized: &ShrinkModel{Base: balanced, Shrink: t.cfg.ShrinkFactor},
		TrainedAt:      time.Now(),
		TrainedOnRows:  len(trainRows),
		HoldoutWMAPE:   run.HoldoutWMAPE,
	}
	if sequence.Trained() {
		snap.Sequence = sequence
	}

	if t.store != nil {
		key := artifactKey(identity, snap.TrainedAt)
		if err := t.saveArtifact(ctx, key, snap); err != nil {
			// The in-memory snapshot is still good; persistence failure
			// only costs us warm restarts.
			log.Error().Err(err).Str("key", key).Msg("artifact upload failed")
		} else {
			run.ArtifactKey = key
		}
	}

	t.registry.Swap(snap)
	now := time.Now()
	run.Status = "completed"
	run.CompletedAt = &now
	log.Info().
		Str("identity", identity).
		Float64("holdout_wmape", run.HoldoutWMAPE).
		Str("artifact", run.ArtifactKey).
		Msg("training completed")
	return run, nil
}

// Restore loads a persisted artifact into the registry, used at startup
// so the service does not cold-boot on the fallback baseline.
func (t *Trainer) Restore(ctx context.Context, key string) error {
	if t.store == nil {
		return errors.New("restore: no artifact store configured")
	}
	data, err := t.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("restore %s: decode: %w", key, err)
	}
	if a.Balanced == nil || !a.Balanced.Trained() {
		return fmt.Errorf("restore %s: %w", key, domain.ErrModelUnavailable)
	}
	t.registry.Swap(&Snapshot{
		Identity:       a.Identity,
		Balanced:       a.Balanced,
		WasteOptimized: &ShrinkModel{Base: a.Balanced, Shrink: t.cfg.ShrinkFactor},
		Sequence:       a.Sequence,
		TrainedAt:      a.TrainedAt,
		TrainedOnRows:  a.TrainingRows,
		HoldoutWMAPE:   a.HoldoutWMAPE,
	})
	return nil
}

func (t *Trainer) saveArtifact(ctx context.Context, key string, snap *Snapshot) error {
	a := artifact{
		Identity:     snap.Identity,
		TrainedAt:    snap.TrainedAt,
		TrainingRows: snap.TrainedOnRows,
		HoldoutWMAPE: snap.HoldoutWMAPE,
		Sequence:     snap.Sequence,
	}
	if gbt, ok := snap.Balanced.(*GradientBoostedRegressor); ok {
		a.Balanced = gbt
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return t.store.Put(ctx, key, data)
}

func artifactKey(identity string, trainedAt time.Time) string {
	return fmt.Sprintf("models/%s/%s.json", identity, trainedAt.UTC().Format("20060102T150405Z"))
}

// splitHoldout orders rows by date and reserves the final fifth, capped
// at 14 days worth of rows, for evaluation.
func splitHoldout(vecs []features.Vector) (train, holdout []features.Vector) {
	sorted := make([]features.Vector, len(vecs))
	copy(sorted, vecs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	cut := len(sorted) * 4 / 5
	if cut == len(sorted) {
		cut--
	}
	if cut < 1 {
		return sorted, nil
	}
	// Do not split a single day across the boundary.
	for cut < len(sorted)-1 && sorted[cut].Date.Equal(sorted[cut-1].Date) {
		cut++
	}
	return sorted[:cut], sorted[cut:]
}

func holdoutWMAPE(m Model, holdout []features.Vector) float64 {
	if len(holdout) == 0 {
		return 0
	}
	preds, err := m.Predict(holdout)
	if err != nil {
		return 0
	}
	var absErr, absActual float64
	for i := range holdout {
		absErr += math.Abs(preds[i] - holdout[i].QuantitySold)
		absActual += math.Abs(holdout[i].QuantitySold)
	}
	if absActual == 0 {
		return 0
	}
	return 100 * absErr / absActual
}
