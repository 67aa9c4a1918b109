package journal

import (
	"context"
	"fmt"

	"github.com/triage-sim/triage-sim/sim/world"
)

// Recorder forwards registrations and passes to a manager and journals the
// ones the manager accepted.
type Recorder struct {
	store   *Store
	manager *world.Manager
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store, m *world.Manager) *Recorder {
	return &Recorder{store: store, manager: m}
}

// Manager returns the recorded manager.
func (r *Recorder) Manager() *world.Manager { return r.manager }

// AddEntity registers and journals an entity.
func (r *Recorder) AddEntity(ctx context.Context, id string, spec world.EntitySpec) error {
	if err := r.manager.AddEntity(id, spec); err != nil {
		return err
	}
	return r.store.AppendEntity(ctx, id, spec)
}

// Synchronize runs and journals a pass. Events failing inside the pass are
// journaled too: replay fails them the same way.
func (r *Recorder) Synchronize(ctx context.Context, now int64, events []world.Event) (world.SyncReport, error) {
	rep, err := r.manager.Synchronize(now, events)
	if err != nil {
		return rep, err
	}
	if _, err := r.store.AppendSync(ctx, now, events); err != nil {
		return rep, fmt.Errorf("journaling sync at t=%d: %w", now, err)
	}
	return rep, nil
}
