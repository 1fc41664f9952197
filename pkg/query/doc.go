// Package query implements the whitelisted filter/aggregation engine the
// concrete tools use to answer ad-hoc questions over tabular data. A
// request names an entity, a conjunction of filter clauses, optional
// grouping, and a single optional aggregate; the engine validates every
// field, operator, and entity against the whitelist before any data
// source is touched, and clamps limits regardless of what the caller
// asked for. No raw query string ever crosses this API.
package query
