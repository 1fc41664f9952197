package engine

import (
	"fmt"

	"github.com/tally-ai/tally/pkg/provider"
	"github.com/tally-ai/tally/pkg/tools"
)

// Engine orchestrates agent conversations. The registry and capability
// table are read-only after construction, so one Engine serves any
// number of concurrent conversations without synchronization.
type Engine struct {
	registry *tools.Registry
	executor *tools.Executor
	caps     provider.Table
	client   provider.ModelClient
	cfg      Config
}

// New creates an Engine. The client must not be nil; a nil capability
// table falls back to the built-in one.
func New(reg *tools.Registry, exec *tools.Executor, caps provider.Table, client provider.ModelClient, cfg Config) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("engine: model client must not be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("engine: tool registry must not be nil")
	}
	if exec == nil {
		exec = tools.NewExecutor(reg, tools.ExecutorConfig{})
	}
	if caps == nil {
		caps = provider.BuiltinTable()
	}
	return &Engine{
		registry: reg,
		executor: exec,
		caps:     caps,
		client:   client,
		cfg:      cfg,
	}, nil
}

// Catalog returns the stably ordered tool catalog the engine sends to
// the model each turn.
func (e *Engine) Catalog() []tools.CatalogEntry {
	return tools.Catalog(e.registry)
}
