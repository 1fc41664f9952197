package config

import (
	"errors"
	"fmt"

	"github.com/tally-ai/tally/pkg/query"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure. A malformed
// query whitelist is a validation error rather than a runtime fallback.
func (c *Config) Validate() error {
	var errs []error

	// engine.backend_url and engine.model are required.
	if c.Engine.BackendURL == "" {
		errs = append(errs, fmt.Errorf("engine.backend_url is required"))
	}
	if c.Engine.Model == "" {
		errs = append(errs, fmt.Errorf("engine.model is required"))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be > 0, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.call_timeout must be > 0, got %s", c.Agent.CallTimeout))
	}
	if c.Agent.MaxOutputBytes <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_output_bytes must be > 0, got %d", c.Agent.MaxOutputBytes))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"sqlite\", or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is \"sqlite\""))
	}

	errs = append(errs, c.Query.validate()...)

	// mcp.servers[*] entries need a name, URL, and known transport.
	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch s.Transport {
		case "sse", "streamable-http", "":
			// valid, empty defaults to streamable-http
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, s.Transport))
		}
	}

	return errors.Join(errs...)
}

func (q QueryConfig) validate() []error {
	var errs []error

	if q.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("query.max_rows must be >= 0, got %d", q.MaxRows))
	}
	if q.MaxInValues < 0 {
		errs = append(errs, fmt.Errorf("query.max_in_values must be >= 0, got %d", q.MaxInValues))
	}
	if q.MaxGroups < 0 {
		errs = append(errs, fmt.Errorf("query.max_groups must be >= 0, got %d", q.MaxGroups))
	}

	known := make(map[query.Op]bool, len(query.AllOps))
	for _, op := range query.AllOps {
		known[op] = true
	}
	for _, op := range q.Operators {
		if !known[query.Op(op)] {
			errs = append(errs, fmt.Errorf("query.operators: unknown operator %q", op))
		}
	}

	for i, e := range q.Entities {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("query.entities[%d].name is required", i))
		}
		if e.Table == "" {
			errs = append(errs, fmt.Errorf("query.entities[%d].table is required", i))
		}
		if e.KeyField == "" {
			errs = append(errs, fmt.Errorf("query.entities[%d].key_field is required", i))
		}
		if len(e.Fields) == 0 {
			errs = append(errs, fmt.Errorf("query.entities[%d].fields must not be empty", i))
		}

		fields := make(map[string]bool, len(e.Fields))
		for _, f := range e.Fields {
			fields[f] = true
		}
		if e.KeyField != "" && !fields[e.KeyField] {
			errs = append(errs, fmt.Errorf("query.entities[%d].key_field %q is not in fields", i, e.KeyField))
		}
		if e.TimeField != "" && !fields[e.TimeField] {
			errs = append(errs, fmt.Errorf("query.entities[%d].time_field %q is not in fields", i, e.TimeField))
		}
		for _, f := range e.NumericFields {
			if !fields[f] {
				errs = append(errs, fmt.Errorf("query.entities[%d].numeric_fields: %q is not in fields", i, f))
			}
		}
	}

	return errs
}
