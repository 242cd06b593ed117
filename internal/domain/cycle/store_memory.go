package cycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"paycore/internal/domain/errs"
)

type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	byPeriod map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte), byPeriod: make(map[string]string)}
}

func periodKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (m *MemoryStore) Create(_ context.Context, c *Cycle) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := periodKey(c.Month, c.Year)
	if _, exists := m.byPeriod[key]; exists {
		return ErrDuplicateCycle
	}
	m.byPeriod[key] = c.ID
	m.docs[c.ID] = doc
	return nil
}

func (m *MemoryStore) Update(_ context.Context, c *Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.load(c.ID)
	if err != nil {
		return err
	}
	if stored.Version != c.Version {
		return errs.ErrConcurrentModification
	}
	c.Version++
	doc, err := json.Marshal(c)
	if err != nil {
		c.Version--
		return err
	}
	m.docs[c.ID] = doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load(id)
}

func (m *MemoryStore) FindByPeriod(_ context.Context, month, year int) (*Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPeriod[periodKey(month, year)]
	if !ok {
		return nil, ErrCycleNotFound
	}
	return m.load(id)
}

func (m *MemoryStore) List(_ context.Context, year int) ([]*Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Cycle
	for id := range m.docs {
		c, err := m.load(id)
		if err != nil {
			return nil, err
		}
		if year != 0 && c.Year != year {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (m *MemoryStore) load(id string) (*Cycle, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrCycleNotFound
	}
	var c Cycle
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
