package feature

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrIndexUnavailable indicates the visual index cannot serve queries.
var ErrIndexUnavailable = errors.New("feature: visual index unavailable")

// Record binds a fingerprint to a catalog drug.
type Record struct {
	ID         string  `json:"id"`
	DrugID     string  `json:"drug_id"`
	DrugName   string  `json:"drug_name"`
	Vector     Vector  `json:"vector"`
	UsageCount int     `json:"usage_count"`
}

// Match is a search hit with its similarity score.
type Match struct {
	Record     Record  `json:"record"`
	Similarity float64 `json:"similarity"`
}

// Store is the visual index. Search runs under shared access so region
// workers can query concurrently; Add and Optimize take exclusive
// access.
type Store interface {
	Add(ctx context.Context, rec Record) (string, error)
	Search(ctx context.Context, vec Vector, limit int) ([]Match, error)
	Optimize(ctx context.Context) (int, error)
}

// duplicate threshold used by Optimize. Fingerprints of the same drug
// this close add nothing to recall.
const dedupeSimilarity = 0.98

// MemoryIndex is an in-process Store guarded by a reader-writer lock.
type MemoryIndex struct {
	mu      sync.RWMutex
	records []Record
	weights Weights
	floor   float64
}

// NewMemoryIndex creates an empty index. Matches below floor are never
// returned.
func NewMemoryIndex(weights Weights, floor float64) *MemoryIndex {
	return &MemoryIndex{weights: weights, floor: floor}
}

// Add stores a fingerprint and returns its record ID.
func (m *MemoryIndex) Add(_ context.Context, rec Record) (string, error) {
	if rec.Vector.IsZero() {
		return "", ErrEmptyRegion
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return rec.ID, nil
}

// Search returns up to limit records most similar to the query, best
// first, all scoring at or above the floor.
func (m *MemoryIndex) Search(ctx context.Context, vec Vector, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vec.IsZero() {
		return nil, ErrEmptyRegion
	}
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.records))
	for _, rec := range m.records {
		sim := Similarity(vec, rec.Vector, m.weights)
		if sim < m.floor {
			continue
		}
		matches = append(matches, Match{Record: rec, Similarity: sim})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Optimize merges near-duplicate fingerprints of the same drug, keeping
// the earliest record and folding usage counts into it. It returns the
// number of records removed. Queries block for the duration.
func (m *MemoryIndex) Optimize(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Record, 0, len(m.records))
	removed := 0
	for _, rec := range m.records {
		merged := false
		for i := range kept {
			if kept[i].DrugID != rec.DrugID {
				continue
			}
			if Similarity(kept[i].Vector, rec.Vector, m.weights) >= dedupeSimilarity {
				kept[i].UsageCount += rec.UsageCount
				merged = true
				removed++
				break
			}
		}
		if !merged {
			kept = append(kept, rec)
		}
	}
	m.records = kept
	return removed, nil
}

// Len reports the number of stored fingerprints.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
