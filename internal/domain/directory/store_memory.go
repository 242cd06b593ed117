package directory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu        sync.RWMutex
	employees map[string]Employee
}

func NewMemoryStore(seed ...Employee) *MemoryStore {
	m := &MemoryStore{employees: make(map[string]Employee)}
	for _, emp := range seed {
		m.employees[emp.ID] = emp
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, id string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *MemoryStore) ListPayable(_ context.Context, start, end time.Time) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Employee
	for _, emp := range m.employees {
		if !emp.OnRollDuring(start, end) {
			continue
		}
		if emp.Status != StatusActive && emp.ExitDate == nil {
			continue
		}
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, emp Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}
