// internal/forecast/registry.go
package forecast

import (
	"sync"
	"time"
)

// Snapshot is an immutable bundle of trained models swapped in atomically
// after a successful training run. Readers never see a half-updated set.
type Snapshot struct {
	Identity       string             `json:"identity"`
	Balanced       Model              `json:"-"`
	WasteOptimized Model              `json:"-"`
	Sequence       *SequenceRegressor `json:"-"`
	TrainedAt      time.Time          `json:"trained_at"`
	TrainedOnRows  int                `json:"training_rows"`
	HoldoutWMAPE   float64            `json:"holdout_wmape"`
}

// Registry holds the current model snapshot and serializes training so at
// most one run per model identity is in flight at a time.
type Registry struct {
	mu      sync.RWMutex
	current *Snapshot

	trainMu  sync.Mutex
	inFlight map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{inFlight: make(map[string]bool)}
}

// Current returns the active snapshot, or nil before the first training run.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Swap installs a new snapshot. In-flight inference keeps the snapshot it
// already loaded.
func (r *Registry) Swap(s *Snapshot) {
	r.mu.Lock()
	r.current = s
	r.mu.Unlock()
}

// BeginTraining claims the training slot for one model identity. It returns
// false when a run for that identity is already in flight; otherwise the
// caller must invoke the returned release function when the run completes.
func (r *Registry) BeginTraining(identity string) (func(), bool) {
	r.trainMu.Lock()
	defer r.trainMu.Unlock()
	if r.inFlight[identity] {
		return nil, false
	}
	r.inFlight[identity] = true
	return func() {
		r.trainMu.Lock()
		delete(r.inFlight, identity)
		r.trainMu.Unlock()
	}, true
}

// Training reports whether a run for the identity is currently in flight.
func (r *Registry) Training(identity string) bool {
	r.trainMu.Lock()
	defer r.trainMu.Unlock()
	return r.inFlight[identity]
}
