package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tally-ai/tally/pkg/query"
)

// writeFile writes a temp file and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.Provider != "openai" {
		t.Errorf("Engine.Provider = %q, want openai", cfg.Engine.Provider)
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Errorf("Agent.MaxIterations = %d, want 10", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.CallTimeout != 30*time.Second {
		t.Errorf("Agent.CallTimeout = %v, want 30s", cfg.Agent.CallTimeout)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Observability.Metrics)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
engine:
  backend_url: "http://llm.internal:8000"
  model: "llama-3-8b"
  provider: "ollama"
agent:
  max_iterations: 5
  turn_timeout: 45s
storage:
  type: sqlite
  sqlite:
    path: /var/lib/tally/data.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.BackendURL != "http://llm.internal:8000" {
		t.Errorf("BackendURL = %q", cfg.Engine.BackendURL)
	}
	if cfg.Engine.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.Engine.Provider)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.TurnTimeout != 45*time.Second {
		t.Errorf("TurnTimeout = %v, want 45s", cfg.Agent.TurnTimeout)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "/var/lib/tally/data.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	// Untouched fields keep their defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
engine:
  backend_url: "http://from-file:8000"
  model: "file-model"
`)

	t.Setenv("TALLY_BACKEND_URL", "http://from-env:9000")
	t.Setenv("TALLY_MODEL", "env-model")
	t.Setenv("TALLY_PROVIDER", "anthropic")
	t.Setenv("TALLY_MAX_ITERATIONS", "3")
	t.Setenv("TALLY_CALL_TIMEOUT", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.BackendURL != "http://from-env:9000" {
		t.Errorf("BackendURL = %q, env override lost", cfg.Engine.BackendURL)
	}
	if cfg.Engine.Model != "env-model" || cfg.Engine.Provider != "anthropic" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Agent.MaxIterations != 3 || cfg.Agent.CallTimeout != 10*time.Second {
		t.Errorf("Agent = %+v", cfg.Agent)
	}
}

func TestLoadResolvesAPIKeyFile(t *testing.T) {
	keyPath := writeFile(t, "api-key", "sk-secret\n")
	cfgPath := writeFile(t, "config.yaml", `
engine:
  backend_url: "http://llm:8000"
  model: "m"
  api_key_file: "`+keyPath+`"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q, want trimmed file content", cfg.Engine.APIKey)
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing backend url",
			yaml: "engine:\n  model: m\n",
			want: "engine.backend_url",
		},
		{
			name: "missing model",
			yaml: "engine:\n  backend_url: http://x\n",
			want: "engine.model",
		},
		{
			name: "bad storage type",
			yaml: "engine:\n  backend_url: http://x\n  model: m\nstorage:\n  type: redis\n",
			want: "storage.type",
		},
		{
			name: "postgres without dsn",
			yaml: "engine:\n  backend_url: http://x\n  model: m\nstorage:\n  type: postgres\n",
			want: "storage.postgres.dsn",
		},
		{
			name: "unknown query operator",
			yaml: "engine:\n  backend_url: http://x\n  model: m\nquery:\n  operators: [eq, like]\n",
			want: "unknown operator",
		},
		{
			name: "entity without table",
			yaml: "engine:\n  backend_url: http://x\n  model: m\nquery:\n  entities:\n    - name: widget\n      key_field: id\n      fields: [id]\n",
			want: "table is required",
		},
		{
			name: "numeric field outside fields",
			yaml: "engine:\n  backend_url: http://x\n  model: m\nquery:\n  entities:\n    - name: widget\n      table: widgets\n      key_field: id\n      fields: [id]\n      numeric_fields: [price]\n",
			want: "numeric_fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want validation failure")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestToWhitelistDefaults(t *testing.T) {
	wl := Defaults().Query.ToWhitelist()

	if _, ok := wl.Rules("employee"); !ok {
		t.Error("built-in employee entity missing")
	}
	if wl.MaxRows != 100 || wl.MaxInValues != 25 || wl.MaxGroups != 50 {
		t.Errorf("limits = %d/%d/%d, want 100/25/50", wl.MaxRows, wl.MaxInValues, wl.MaxGroups)
	}
}

func TestToWhitelistCustomEntities(t *testing.T) {
	q := QueryConfig{
		MaxRows:   20,
		Operators: []string{"eq", "in"},
		Entities: []EntityConfig{
			{
				Name: "widget", Table: "widgets", KeyField: "id",
				TimeField: "updated_at",
				Fields:    []string{"id", "price", "updated_at"},
				NumericFields: []string{
					"price",
				},
			},
		},
	}

	wl := q.ToWhitelist()
	if wl.MaxRows != 20 {
		t.Errorf("MaxRows = %d, want 20", wl.MaxRows)
	}
	if len(wl.Operators) != 2 || !wl.AllowsOp(query.OpIn) || wl.AllowsOp(query.OpGt) {
		t.Errorf("Operators = %v, want only eq and in", wl.Operators)
	}

	rules, ok := wl.Rules("widget")
	if !ok {
		t.Fatal("widget entity missing")
	}
	if rules.Table != "widgets" || !rules.HasNumericField("price") {
		t.Errorf("rules = %+v", rules)
	}
	// Custom entities replace the built-ins.
	if _, ok := wl.Rules("employee"); ok {
		t.Error("built-in employee entity leaked into custom whitelist")
	}
}

func TestDiscoverConfigFilePrecedence(t *testing.T) {
	explicit := writeFile(t, "explicit.yaml", "")
	envPath := writeFile(t, "env.yaml", "")

	if got := discoverConfigFile(explicit); got != explicit {
		t.Errorf("discoverConfigFile(explicit) = %q", got)
	}

	t.Setenv("TALLY_CONFIG", envPath)
	if got := discoverConfigFile(""); got != envPath {
		t.Errorf("discoverConfigFile() = %q, want env path", got)
	}
}
