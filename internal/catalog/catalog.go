// Package catalog provides read access to the drug reference catalog.
//
// The catalog is owned by an external collaborator; the scanning pipeline
// only reads entries and proposes corrections through the feedback queue.
package catalog

import (
	"context"
	"errors"
)

// Entry is a canonical drug record with generic and brand aliases.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`         // canonical drug name
	GenericName string   `json:"generic_name"` // generic/INN name; may equal Name
	Brands      []string `json:"brands"`       // ordered brand aliases
	Category    string   `json:"category"`     // ATC-like category code
	SearchKeys  []string `json:"search_keys"`  // normalized lookup keys
	UsageCount  int64    `json:"usage_count"`  // historical selection count
}

// PrimaryKey returns the normalized key for the canonical name.
func (e Entry) PrimaryKey() string { return NormalizeKey(e.Name) }

// HasKey reports whether the given normalized key belongs to this entry.
func (e Entry) HasKey(key string) bool {
	for _, k := range e.SearchKeys {
		if k == key {
			return true
		}
	}
	return false
}

// BrandForKey returns the brand alias matching the normalized key, if any.
func (e Entry) BrandForKey(key string) (string, bool) {
	for _, b := range e.Brands {
		if NormalizeKey(b) == key {
			return b, true
		}
	}
	return "", false
}

// ErrNotFound is returned when no entry matches a lookup.
var ErrNotFound = errors.New("catalog: entry not found")

// Store is the read-only interface to the external drug catalog.
type Store interface {
	// LookupByKey returns all entries carrying the normalized search key.
	LookupByKey(ctx context.Context, key string) ([]Entry, error)

	// ListByCategory returns all entries in the given category.
	ListByCategory(ctx context.Context, category string) ([]Entry, error)

	// Entries returns a snapshot of all entries, for fuzzy scans.
	Entries(ctx context.Context) ([]Entry, error)
}

// BuildSearchKeys derives the normalized search keys for an entry from its
// canonical name, generic name, and brand aliases. Duplicates are removed,
// first occurrence wins.
func BuildSearchKeys(e Entry) []string {
	seen := make(map[string]struct{}, 2+len(e.Brands))
	keys := make([]string, 0, 2+len(e.Brands))
	add := func(s string) {
		k := NormalizeKey(s)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	add(e.Name)
	add(e.GenericName)
	for _, b := range e.Brands {
		add(b)
	}
	return keys
}
