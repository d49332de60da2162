package memory

import (
	"context"
	"sync"

	"github.com/terahq/tera/ports"
)

// SettingStore keeps configurable overrides in memory.
type SettingStore struct {
	mu     sync.RWMutex
	values map[string]map[string]any
}

// NewSettingStore creates an empty setting store.
func NewSettingStore() *SettingStore {
	return &SettingStore{
		values: make(map[string]map[string]any),
	}
}

// Get returns a copy of the stored overrides for a module.
func (s *SettingStore) Get(_ context.Context, moduleID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.values[moduleID]
	out := make(map[string]any, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Set replaces the stored overrides for a module.
func (s *SettingStore) Set(_ context.Context, moduleID string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.values[moduleID] = copied
	return nil
}

var _ ports.ModuleSettingStore = (*SettingStore)(nil)
