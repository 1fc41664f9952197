// Package storage defines the read-only data source consumed by the
// concrete tools: keyed point lookups with latest-record-by-key
// semantics, and the validated filtered/grouped fetch matching the query
// engine's request shape. Implementations live in the memory, sqlite,
// and postgres subpackages; a concurrency limiter decorator caps
// simultaneous queries against a shared backend.
package storage
