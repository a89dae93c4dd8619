package pipeline

import (
	"sync/atomic"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

// Store holds the current snapshot behind an atomic pointer. Readers always
// see a complete snapshot; a refresh swaps the pointer in one step. It is the
// single holder of derived state in the process.
type Store struct {
	current atomic.Pointer[domain.Snapshot]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the latest snapshot, or false before the first refresh.
func (s *Store) Current() (*domain.Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// Replace installs a new snapshot.
func (s *Store) Replace(snap *domain.Snapshot) {
	s.current.Store(snap)
}
