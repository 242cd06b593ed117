package tax

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"paycore/internal/domain/errs"
)

// MemoryStore keeps records as JSON documents so callers never share
// pointers with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	byKey map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte), byKey: make(map[string]string)}
}

func memoryKey(employeeID, financialYear string) string {
	return employeeID + "|" + financialYear
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(rec.EmployeeID, rec.FinancialYear)
	if _, exists := m.byKey[key]; exists {
		return ErrDuplicateRecord
	}
	m.byKey[key] = rec.ID
	m.docs[rec.ID] = doc
	return nil
}

func (m *MemoryStore) Update(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.docs[rec.ID]
	if !ok {
		return ErrRecordNotFound
	}
	var stored Record
	if err := json.Unmarshal(current, &stored); err != nil {
		return err
	}
	if stored.Version != rec.Version {
		return errs.ErrConcurrentModification
	}
	rec.Version++
	doc, err := json.Marshal(rec)
	if err != nil {
		rec.Version--
		return err
	}
	m.docs[rec.ID] = doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load(id)
}

func (m *MemoryStore) FindByEmployeeYear(_ context.Context, employeeID, financialYear string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[memoryKey(employeeID, financialYear)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return m.load(id)
}

func (m *MemoryStore) ListByYear(_ context.Context, financialYear string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Record
	for id := range m.docs {
		rec, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if rec.FinancialYear == financialYear {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *MemoryStore) load(id string) (*Record, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
