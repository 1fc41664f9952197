// Package postgres provides a DataSource backed by PostgreSQL, using
// pgx/v5 connection pooling. Generated queries are always parameterized;
// identifiers come from the whitelist, never from request values.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
)

// Store is a PostgreSQL-backed DataSource.
type Store struct {
	pool *pgxpool.Pool
	wl   query.Whitelist
}

// Ensure Store implements storage.DataSource at compile time.
var _ storage.DataSource = (*Store)(nil)

// New creates a Store with the given configuration. If MigrateOnStart is
// set, schema migrations are applied before the store is returned.
func New(ctx context.Context, cfg Config, wl query.Whitelist) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, wl: wl}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Pool exposes the underlying pool for seeding in tests.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// FetchLatest returns the latest record for the key, by the entity's
// time field.
func (s *Store) FetchLatest(ctx context.Context, entity, key string) (query.Row, error) {
	rules, ok := s.wl.Rules(entity)
	if !ok {
		return nil, &query.UnknownEntityError{Entity: entity}
	}

	stmt := storage.BuildFetchLatest(rules, storage.PostgresDialect)
	rows, err := s.pool.Query(ctx, stmt, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", entity, key, err)
	}

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

	stmt, args := storage.BuildSelect(req, rules, storage.PostgresDialect, s.wl.MaxGroups)
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", req.Entity, err)
	}

	scanned, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return shape(scanned, req)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanRows reads all pgx rows into generic maps keyed by column name.
func scanRows(rows pgx.Rows) ([]query.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []query.Row

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(query.Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// shape converts scanned rows into the result form the request asked for.
func shape(scanned []query.Row, req *query.Request) (*query.Result, error) {
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

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
