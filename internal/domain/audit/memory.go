package audit

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (m *MemoryStore) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.EntityType + "/" + entry.EntityID
	m.entries[key] = append(m.entries[key], entry)
	return nil
}

func (m *MemoryStore) List(_ context.Context, entityType, entityID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.entries[entityType+"/"+entityID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}
