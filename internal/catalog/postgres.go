package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore reads catalog entries from a PostgreSQL database.
// The drugs table is owned and maintained by the catalog service; this
// store never writes to it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the catalog database and verifies the
// connection.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("catalog: database dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the database connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

const entryColumns = `id, name, generic_name, brands, category, search_keys, usage_count`

// LookupByKey returns all entries carrying the normalized search key.
func (s *PostgresStore) LookupByKey(ctx context.Context, key string) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM drugs WHERE $1 = ANY(search_keys)`, entryColumns)
	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup by key: %w", err)
	}
	return scanEntries(rows)
}

// ListByCategory returns all entries in the given category.
func (s *PostgresStore) ListByCategory(ctx context.Context, category string) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM drugs WHERE category = $1 ORDER BY name`, entryColumns)
	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("catalog: list by category: %w", err)
	}
	return scanEntries(rows)
}

// Entries returns a snapshot of all entries.
func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM drugs ORDER BY name`, entryColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list entries: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.Name, &e.GenericName,
			pq.Array(&e.Brands), &e.Category,
			pq.Array(&e.SearchKeys), &e.UsageCount,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate entries: %w", err)
	}
	return entries, nil
}
