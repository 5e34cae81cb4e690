package db

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	blob      []byte
	updatedAt time.Time
}

// MemoryStore keeps snapshots in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, e.blob...), true, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{blob: append([]byte{}, blob...), updatedAt: time.Now()}
	return nil
}

// List returns session IDs, most recently updated first
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.entries[ids[i]].updatedAt, m.entries[ids[j]].updatedAt
		if a.Equal(b) {
			return ids[i] < ids[j]
		}
		return a.After(b)
	})
	return ids, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
