// Package config provides unified configuration for the tally agent.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TALLY_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/tally-ai/tally/pkg/query"
)

// Config holds all configuration for the tally agent.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Agent         AgentConfig         `yaml:"agent"`
	Query         QueryConfig         `yaml:"query"`
	Storage       StorageConfig       `yaml:"storage"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// EngineConfig holds model backend and provider settings.
type EngineConfig struct {
	Provider     string        `yaml:"provider"`      // capability table key, default: "openai"
	BackendURL   string        `yaml:"backend_url"`   // required
	APIKey       string        `yaml:"api_key"`       // optional
	APIKeyFile   string        `yaml:"api_key_file"`  // _file variant for api_key
	Model        string        `yaml:"model"`         // required
	SystemPrompt string        `yaml:"system_prompt"` // optional
	HTTPTimeout  time.Duration `yaml:"http_timeout"`  // default: 120s
}

// AgentConfig holds agent loop and tool execution limits.
type AgentConfig struct {
	MaxIterations        int           `yaml:"max_iterations"`         // default: 10
	CallTimeout          time.Duration `yaml:"call_timeout"`           // default: 30s
	TurnTimeout          time.Duration `yaml:"turn_timeout"`           // 0 = unbounded
	MaxOutputBytes       int           `yaml:"max_output_bytes"`       // default: 16384
	MaxConcurrentQueries int           `yaml:"max_concurrent_queries"` // default: 8, 0 = unbounded
}

// QueryConfig holds the query whitelist. An empty config falls back to
// the built-in whitelist; a present but malformed one fails startup.
type QueryConfig struct {
	MaxRows     int            `yaml:"max_rows"`      // default: 100
	MaxInValues int            `yaml:"max_in_values"` // default: 25
	MaxGroups   int            `yaml:"max_groups"`    // default: 50
	Operators   []string       `yaml:"operators"`     // default: all operators
	Entities    []EntityConfig `yaml:"entities"`
}

// EntityConfig describes one whitelisted entity.
type EntityConfig struct {
	Name          string   `yaml:"name"`
	Table         string   `yaml:"table"`
	KeyField      string   `yaml:"key_field"`
	TimeField     string   `yaml:"time_field"`
	Fields        []string `yaml:"fields"`
	NumericFields []string `yaml:"numeric_fields"`
}

// StorageConfig holds data source settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "sqlite", or "postgres", default: "memory"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "tally.db"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Engine: EngineConfig{
			Provider:    "openai",
			HTTPTimeout: 120 * time.Second,
		},
		Agent: AgentConfig{
			MaxIterations:        10,
			CallTimeout:          30 * time.Second,
			MaxOutputBytes:       16 * 1024,
			MaxConcurrentQueries: 8,
		},
		Query: QueryConfig{
			MaxRows:     100,
			MaxInValues: 25,
			MaxGroups:   50,
		},
		Storage: StorageConfig{
			Type: "memory",
			SQLite: SQLiteConfig{
				Path: "tally.db",
			},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// ToWhitelist converts the query section to engine rules. Without any
// configured entities the built-in whitelist applies, adjusted by the
// configured limits.
func (q QueryConfig) ToWhitelist() query.Whitelist {
	wl := query.DefaultWhitelist()

	if q.MaxRows > 0 {
		wl.MaxRows = q.MaxRows
	}
	if q.MaxInValues > 0 {
		wl.MaxInValues = q.MaxInValues
	}
	if q.MaxGroups > 0 {
		wl.MaxGroups = q.MaxGroups
	}
	if len(q.Operators) > 0 {
		ops := make([]query.Op, 0, len(q.Operators))
		for _, op := range q.Operators {
			ops = append(ops, query.Op(op))
		}
		wl.Operators = ops
	}

	if len(q.Entities) > 0 {
		wl.Entities = make(map[string]query.EntityRules, len(q.Entities))
		for _, e := range q.Entities {
			wl.Entities[e.Name] = query.EntityRules{
				Table:         e.Table,
				KeyField:      e.KeyField,
				TimeField:     e.TimeField,
				Fields:        e.Fields,
				NumericFields: e.NumericFields,
			}
		}
	}

	return wl
}
