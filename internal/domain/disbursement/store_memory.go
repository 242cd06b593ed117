package disbursement

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"paycore/internal/domain/errs"
)

type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string][]byte
	byPayroll map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte), byPayroll: make(map[string]string)}
}

func (m *MemoryStore) Create(_ context.Context, d *Disbursement) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPayroll[d.PayrollID]; exists {
		return ErrDuplicateDisbursement
	}
	m.byPayroll[d.PayrollID] = d.ID
	m.docs[d.ID] = doc
	return nil
}

func (m *MemoryStore) Update(_ context.Context, d *Disbursement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.load(d.ID)
	if err != nil {
		return err
	}
	if stored.Version != d.Version {
		return errs.ErrConcurrentModification
	}
	d.Version++
	doc, err := json.Marshal(d)
	if err != nil {
		d.Version--
		return err
	}
	m.docs[d.ID] = doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load(id)
}

func (m *MemoryStore) FindByPayroll(_ context.Context, payrollID string) (*Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPayroll[payrollID]
	if !ok {
		return nil, ErrDisbursementNotFound
	}
	return m.load(id)
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]*Disbursement, error) {
	return m.filter(func(d *Disbursement) bool {
		return (f.BatchID == "" || d.BatchID == f.BatchID) &&
			(f.CycleID == "" || d.CycleID == f.CycleID) &&
			(f.EmployeeID == "" || d.EmployeeID == f.EmployeeID) &&
			(f.Status == "" || d.Transaction.Status == f.Status)
	})
}

func (m *MemoryStore) ListRetryEligible(_ context.Context, now time.Time) ([]*Disbursement, error) {
	return m.filter(func(d *Disbursement) bool { return d.RetryEligible(now) })
}

func (m *MemoryStore) filter(keep func(*Disbursement) bool) ([]*Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Disbursement
	for id := range m.docs {
		d, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) load(id string) (*Disbursement, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrDisbursementNotFound
	}
	var d Disbursement
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
