package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"paycore/internal/domain/errs"
)

type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	byKey map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte), byKey: make(map[string]string)}
}

func periodKey(employeeID string, month, year int) string {
	return fmt.Sprintf("%s|%04d-%02d", employeeID, year, month)
}

func (m *MemoryStore) Create(_ context.Context, p *Payroll) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := periodKey(p.EmployeeID, p.Month, p.Year)
	if _, exists := m.byKey[key]; exists {
		return ErrDuplicatePayroll
	}
	m.byKey[key] = p.ID
	m.docs[p.ID] = doc
	return nil
}

func (m *MemoryStore) Update(_ context.Context, p *Payroll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.load(p.ID)
	if err != nil {
		return err
	}
	if stored.Version != p.Version {
		return errs.ErrConcurrentModification
	}
	p.Version++
	doc, err := json.Marshal(p)
	if err != nil {
		p.Version--
		return err
	}
	m.docs[p.ID] = doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Payroll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load(id)
}

func (m *MemoryStore) FindByEmployeePeriod(_ context.Context, employeeID string, month, year int) (*Payroll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[periodKey(employeeID, month, year)]
	if !ok {
		return nil, ErrPayrollNotFound
	}
	return m.load(id)
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]*Payroll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Payroll
	for id := range m.docs {
		p, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if f.Month > 0 && p.Month != f.Month ||
			f.Year > 0 && p.Year != f.Year ||
			f.CycleID != "" && p.CycleID != f.CycleID ||
			f.EmployeeID != "" && p.EmployeeID != f.EmployeeID ||
			f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (m *MemoryStore) load(id string) (*Payroll, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrPayrollNotFound
	}
	var p Payroll
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
