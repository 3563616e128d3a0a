package state

import (
	"sync"

	"github.com/fabrik-io/fabrik/internal/ir"
)

// MemoryStore is an in-memory Store. Each instance is independent, so
// concurrent runs against different stores are possible in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ir.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*ir.Record)}
}

func (s *MemoryStore) Get(address string) (*ir.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[address]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Copy(), nil
}

func (s *MemoryStore) Put(record *ir.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Address()] = record.Copy()
	return nil
}

func (s *MemoryStore) Delete(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, address)
	return nil
}

func (s *MemoryStore) List() ([]*ir.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ir.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Copy())
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
