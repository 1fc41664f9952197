// Package sqlite provides a DataSource backed by an embedded SQLite
// database, for single-binary deployments without an external database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
)

// Store is a SQLite-backed DataSource.
type Store struct {
	db *sql.DB
	wl query.Whitelist
}

// Ensure Store implements storage.DataSource at compile time.
var _ storage.DataSource = (*Store)(nil)

// New opens the SQLite database at path. Use ":memory:" for an ephemeral
// database. The whitelist supplies the entity-to-table mapping.
func New(path string, wl query.Whitelist) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}
	return &Store{db: db, wl: wl}, nil
}

// DB exposes the underlying handle for schema setup and seeding.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FetchLatest returns the latest record for the key, by the entity's
// time field.
func (s *Store) FetchLatest(ctx context.Context, entity, key string) (query.Row, error) {
	rules, ok := s.wl.Rules(entity)
	if !ok {
		return nil, &query.UnknownEntityError{Entity: entity}
	}

	stmt := storage.BuildFetchLatest(rules, storage.SQLiteDialect)
	rows, err := s.db.QueryContext(ctx, stmt, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", entity, key, err)
	}
	defer rows.Close()

	scanned, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(scanned) == 0 {
		return nil, storage.ErrNotFound
	}
	return scanned[0], nil
}

// Select answers a validated request with a parameterized query.
func (s *Store) Select(ctx context.Context, req *query.Request) (*query.Result, error) {
	rules, ok := s.wl.Rules(req.Entity)
	if !ok {
		return nil, &query.UnknownEntityError{Entity: req.Entity}
	}

	stmt, args := storage.BuildSelect(req, rules, storage.SQLiteDialect, s.wl.MaxGroups)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", req.Entity, err)
	}
	defer rows.Close()

	return collect(rows, req)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// collect shapes scanned rows into the result form the request asked for.
func collect(rows *sql.Rows, req *query.Request) (*query.Result, error) {
	scanned, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	switch {
	case req.Aggregate != query.AggNone && len(req.GroupBy) > 0:
		result := &query.Result{}
		for _, row := range scanned {
			g := query.Group{Key: make(map[string]any, len(req.GroupBy))}
			for _, field := range req.GroupBy {
				g.Key[field] = row[field]
			}
			v, ok := numeric(row["agg_value"])
			if !ok {
				return nil, errors.New("aggregate column has non-numeric value")
			}
			g.Value = v
			result.Groups = append(result.Groups, g)
		}
		return result, nil

	case req.Aggregate != query.AggNone:
		result := &query.Result{}
		if len(scanned) > 0 {
			if v, ok := numeric(scanned[0]["agg_value"]); ok {
				result.Value = &v
			}
		}
		if result.Value == nil {
			zero := 0.0
			result.Value = &zero
		}
		return result, nil

	default:
		return &query.Result{Rows: scanned}, nil
	}
}

// scanRows reads all rows into generic maps keyed by column name.
func scanRows(rows *sql.Rows) ([]query.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []query.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(query.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
