// internal/forecast/trainer_test.go
package forecast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/features"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func trainingObservations() []domain.DemandObservation {
	return observations("latte", 60, func(i int) float64 {
		base := 10.0
		if i%7 >= 5 {
			base = 16.0
		}
		return base + float64(i%3)
	})
}

func TestTrainInstallsSnapshot(t *testing.T) {
	registry := NewRegistry()
	store := newMemStore()
	trainer := NewTrainer(testForecastConfig(), registry, store)

	run, err := trainer.Train(context.Background(), "demand_ensemble", trainingObservations())
	require.NoError(t, err)

	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, features.PolicyDrop, run.MissingLagPolicy)
	assert.Greater(t, run.TrainingRows, 0)
	assert.Greater(t, run.HoldoutRows, 0)
	require.NotEmpty(t, run.ArtifactKey)
	assert.Contains(t, store.objects, run.ArtifactKey)
	require.NotNil(t, run.CompletedAt)

	snap := registry.Current()
	require.NotNil(t, snap)
	assert.Equal(t, "demand_ensemble", snap.Identity)
	assert.NotNil(t, snap.Balanced)
	assert.NotNil(t, snap.WasteOptimized)
	assert.Equal(t, run.TrainingRows, snap.TrainedOnRows)
	assert.False(t, registry.Training("demand_ensemble"))
}

func TestTrainConflict(t *testing.T) {
	registry := NewRegistry()
	trainer := NewTrainer(testForecastConfig(), registry, nil)

	release, ok := registry.BeginTraining("demand_ensemble")
	require.True(t, ok)
	defer release()

	_, err := trainer.Train(context.Background(), "demand_ensemble", trainingObservations())
	assert.ErrorIs(t, err, domain.ErrTrainingInFlight)
}

func TestTrainNoObservations(t *testing.T) {
	trainer := NewTrainer(testForecastConfig(), NewRegistry(), nil)

	run, err := trainer.Train(context.Background(), "demand_ensemble", nil)
	assert.ErrorIs(t, err, domain.ErrNoObservations)
	require.NotNil(t, run)
	assert.Equal(t, "failed", run.Status)
}

func TestRestoreRoundTrip(t *testing.T) {
	store := newMemStore()
	first := NewTrainer(testForecastConfig(), NewRegistry(), store)

	run, err := first.Train(context.Background(), "demand_ensemble", trainingObservations())
	require.NoError(t, err)
	require.NotEmpty(t, run.ArtifactKey)

	registry := NewRegistry()
	second := NewTrainer(testForecastConfig(), registry, store)
	require.NoError(t, second.Restore(context.Background(), run.ArtifactKey))

	snap := registry.Current()
	require.NotNil(t, snap)
	assert.Equal(t, "demand_ensemble", snap.Identity)
	assert.InDelta(t, run.HoldoutWMAPE, snap.HoldoutWMAPE, 1e-9)
	require.NotNil(t, snap.Balanced)

	want, err := registry.Current().Balanced.Predict(seqRows("latte", []float64{10, 11, 12}))
	require.NoError(t, err)
	assert.Len(t, want, 3)
}

func TestRestoreMissingArtifact(t *testing.T) {
	trainer := NewTrainer(testForecastConfig(), NewRegistry(), newMemStore())
	err := trainer.Restore(context.Background(), "models/demand_ensemble/nope.json")
	assert.Error(t, err)

	noStore := NewTrainer(testForecastConfig(), NewRegistry(), nil)
	assert.Error(t, noStore.Restore(context.Background(), "any"))
}

func TestSplitHoldoutKeepsDaysWhole(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	vecs := make([]features.Vector, 0, 10)
	for i := 0; i < 10; i++ {
		day := i
		if day == 8 {
			day = 7
		}
		vecs = append(vecs, features.Vector{ItemID: "a", Date: base.AddDate(0, 0, day)})
	}

	train, holdout := splitHoldout(vecs)
	assert.Len(t, train, 9)
	assert.Len(t, holdout, 1)
	for _, h := range holdout {
		assert.False(t, h.Date.Before(train[len(train)-1].Date))
	}
}

func TestSplitHoldoutTinyInput(t *testing.T) {
	vecs := []features.Vector{{ItemID: "a", Date: time.Now()}}
	train, holdout := splitHoldout(vecs)
	assert.Len(t, train, 1)
	assert.Empty(t, holdout)
}

func TestHoldoutWMAPEEmpty(t *testing.T) {
	assert.Zero(t, holdoutWMAPE(NewGradientBoostedRegressor(), nil))
}
