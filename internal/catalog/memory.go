package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// MemoryStore is an in-memory catalog store, used for tests and for
// deployments that ship the catalog as a seed file.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byKey   map[string][]int // normalized key -> entry indices
	byCat   map[string][]int
}

// NewMemoryStore creates a store holding the given entries.
// Entries without search keys get them derived from name and aliases.
func NewMemoryStore(entries []Entry) *MemoryStore {
	s := &MemoryStore{
		byKey: make(map[string][]int),
		byCat: make(map[string][]int),
	}
	for _, e := range entries {
		s.add(e)
	}
	return s
}

// LoadSeedFile reads a JSON array of entries from disk into a MemoryStore.
func LoadSeedFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: seed file path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog seed is empty: %s", path)
	}
	return NewMemoryStore(entries), nil
}

func (s *MemoryStore) add(e Entry) {
	if len(e.SearchKeys) == 0 {
		e.SearchKeys = BuildSearchKeys(e)
	}
	idx := len(s.entries)
	s.entries = append(s.entries, e)
	for _, k := range e.SearchKeys {
		s.byKey[k] = append(s.byKey[k], idx)
	}
	s.byCat[e.Category] = append(s.byCat[e.Category], idx)
}

// LookupByKey returns all entries carrying the normalized search key.
func (s *MemoryStore) LookupByKey(_ context.Context, key string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// ListByCategory returns all entries in the given category.
func (s *MemoryStore) ListByCategory(_ context.Context, category string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.byCat[category]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Entries returns a snapshot of all entries.
func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
