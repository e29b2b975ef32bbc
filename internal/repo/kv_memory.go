package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/pueblos-core/internal/domain"
)

// memoryKVStore keeps values in a map. Nothing survives the process.
type memoryKVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV returns an empty in-memory KVStore.
func NewMemoryKV() KVStore {
	return &memoryKVStore{values: map[string]string{}}
}

func (m *memoryKVStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("repo.memoryKVStore.Get: %q: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (m *memoryKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKVStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
