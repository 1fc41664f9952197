package storage

import (
	"context"
	"errors"

	"github.com/tally-ai/tally/pkg/query"
)

// Sentinel errors for data source operations.
var (
	// ErrNotFound is returned by FetchLatest when no record matches the key.
	ErrNotFound = errors.New("record not found")
)

// DataSource is the data access contract for the concrete tools and the
// query engine. All operations are read-only; no implementation ever
// mutates underlying data.
type DataSource interface {
	query.Source

	// FetchLatest returns the record for the given entity and key. When
	// multiple records share the key, the one with the latest value of
	// the entity's time field wins. Returns ErrNotFound when absent.
	FetchLatest(ctx context.Context, entity, key string) (query.Row, error)

	// Close releases underlying resources (pools, file handles).
	Close() error
}
