package application

import (
	"sync/atomic"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// SnapshotStore is the single shared mutable slot of the process: one
// writer (the scheduler) swaps complete immutable snapshots in, many
// readers (HTTP handlers) read the current one without blocking. Readers
// see either the previous complete snapshot or the new one, never a mix.
type SnapshotStore struct {
	current  atomic.Pointer[domain.DashboardSnapshot]
	degraded atomic.Bool
}

var _ domain.SnapshotReader = (*SnapshotStore)(nil)

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Current returns the latest published snapshot, or nil before the first
// successful refresh.
func (s *SnapshotStore) Current() *domain.DashboardSnapshot {
	return s.current.Load()
}

// Publish replaces the snapshot. The snapshot must not be mutated after
// this call.
func (s *SnapshotStore) Publish(snapshot *domain.DashboardSnapshot) {
	s.current.Store(snapshot)
}

// Degraded reports whether refreshes have failed past the cap and stale
// data is being served.
func (s *SnapshotStore) Degraded() bool {
	return s.degraded.Load()
}

func (s *SnapshotStore) SetDegraded(v bool) {
	s.degraded.Store(v)
}
