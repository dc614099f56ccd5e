package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/partsync/partsync/internal/model"
)

// MemoryStore is an in-memory RecordStore. It backs tests and dry runs; all
// data is lost on Close.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*model.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*model.Record)}
}

// Find returns a copy of the stored record so callers can stage changes
// without mutating store state.
func (s *MemoryStore) Find(_ context.Context, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[normalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Upsert stores a copy of the record keyed by its normalized id.
func (s *MemoryStore) Upsert(_ context.Context, record *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[normalizeID(record.ID)] = record.Clone()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close discards all records.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*model.Record)
	return nil
}

// normalizeID uppercases and trims record ids so lookups match the way ids
// are entered by hand.
func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
