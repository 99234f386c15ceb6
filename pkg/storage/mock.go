package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwebster45206/saga-engine/pkg/world"
)

// MockStorage is an in-memory Storage for tests and the "memory" backend.
// Saved worlds are kept as a JSON document so callers never share memory
// with the store.
type MockStorage struct {
	mu        sync.RWMutex
	doc       []byte
	saves     int
	pingError error
	loadError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetLoadError makes LoadAllWorlds fail until cleared with nil
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// SetSaveError makes SaveAllWorlds fail until cleared with nil
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCount returns the number of successful saves
func (m *MockStorage) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) LoadAllWorlds(ctx context.Context) ([]world.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	worlds := []world.World{}
	if len(m.doc) == 0 {
		return worlds, nil
	}
	if err := json.Unmarshal(m.doc, &worlds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal worlds: %w", err)
	}
	return worlds, nil
}

func (m *MockStorage) SaveAllWorlds(ctx context.Context, worlds []world.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	data, err := json.Marshal(worlds)
	if err != nil {
		return fmt.Errorf("failed to marshal worlds: %w", err)
	}
	m.doc = data
	m.saves++
	return nil
}
