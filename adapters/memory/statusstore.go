// Package memory provides in-memory implementations of storage ports,
// used in tests and single-process setups.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/terahq/tera/ports"
)

// StatusStore keeps module enablement in memory.
type StatusStore struct {
	mu       sync.RWMutex
	statuses map[string]ports.ModuleStatus
}

// NewStatusStore creates an empty status store.
func NewStatusStore() *StatusStore {
	return &StatusStore{
		statuses: make(map[string]ports.ModuleStatus),
	}
}

// Get returns the stored status for a module.
func (s *StatusStore) Get(_ context.Context, moduleID string) (ports.ModuleStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[moduleID]
	return status, ok, nil
}

// Set stores the status, replacing any prior row.
func (s *StatusStore) Set(_ context.Context, status ports.ModuleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[status.ModuleID] = status
	return nil
}

// List returns all stored statuses sorted by module id.
func (s *StatusStore) List(_ context.Context) ([]ports.ModuleStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.ModuleStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

var _ ports.ModuleStatusStore = (*StatusStore)(nil)
