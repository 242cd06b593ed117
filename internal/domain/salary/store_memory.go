package salary

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"paycore/internal/domain/errs"
)

type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Create(_ context.Context, st *Structure) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.docs {
		existing, err := m.load(id)
		if err != nil {
			return err
		}
		if existing.EmployeeID == st.EmployeeID && existing.Revision == st.Revision {
			return ErrDuplicateRevision
		}
	}
	m.docs[st.ID] = doc
	return nil
}

func (m *MemoryStore) Update(_ context.Context, st *Structure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.load(st.ID)
	if err != nil {
		return err
	}
	if stored.Version != st.Version {
		return errs.ErrConcurrentModification
	}
	st.Version++
	doc, err := json.Marshal(st)
	if err != nil {
		st.Version--
		return err
	}
	m.docs[st.ID] = doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load(id)
}

func (m *MemoryStore) ListByEmployee(_ context.Context, employeeID string) ([]*Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Structure
	for id := range m.docs {
		st, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if st.EmployeeID == employeeID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revision < out[j].Revision })
	return out, nil
}

func (m *MemoryStore) load(id string) (*Structure, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrStructureNotFound
	}
	var st Structure
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
