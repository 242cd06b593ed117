package attendance

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu        sync.RWMutex
	summaries map[string]Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{summaries: make(map[string]Summary)}
}

func summaryKey(employeeID string, month, year int) string {
	return fmt.Sprintf("%s|%04d-%02d", employeeID, year, month)
}

func (m *MemoryStore) Get(_ context.Context, employeeID string, month, year int) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, ok := m.summaries[summaryKey(employeeID, month, year)]
	if !ok {
		return Summary{}, ErrSummaryNotFound
	}
	return sum, nil
}

func (m *MemoryStore) Upsert(_ context.Context, sum Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summaryKey(sum.EmployeeID, sum.Month, sum.Year)] = sum
	return nil
}
