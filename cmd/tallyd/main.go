// Command tallyd runs the tally tool-calling agent.
//
// With -ask, it answers a single question and exits. Without it, it
// serves an HTTP API:
//
//	POST /v1/ask  - run the agent loop for one question
//	GET  /healthz - liveness check
//	GET  /metrics - Prometheus metrics (when enabled)
//
// Configuration is layered: defaults, a YAML file (-config flag,
// TALLY_CONFIG env, ./config.yaml, /etc/tally/config.yaml), then
// TALLY_* environment overrides.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tally-ai/tally/pkg/config"
	"github.com/tally-ai/tally/pkg/engine"
	"github.com/tally-ai/tally/pkg/observability"
	"github.com/tally-ai/tally/pkg/provider"
	"github.com/tally-ai/tally/pkg/provider/openai"
	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
	"github.com/tally-ai/tally/pkg/storage/memory"
	"github.com/tally-ai/tally/pkg/storage/postgres"
	"github.com/tally-ai/tally/pkg/storage/sqlite"
	"github.com/tally-ai/tally/pkg/tools"
	"github.com/tally-ai/tally/pkg/tools/builtins/employee"
	mcptools "github.com/tally-ai/tally/pkg/tools/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	ask := flag.String("ask", "", "answer a single question and exit")
	flag.Parse()

	if err := run(*configPath, *ask); err != nil {
		slog.Error("tallyd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, ask string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wl := cfg.Query.ToWhitelist()

	src, err := openDataSource(ctx, cfg, wl)
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer src.Close()
	src = storage.NewLimited(src, cfg.Agent.MaxConcurrentQueries)

	qeng := query.New(wl, src)

	reg := tools.NewRegistry()
	if err := employee.Register(reg, src, qeng); err != nil {
		return fmt.Errorf("registering workforce tools: %w", err)
	}

	mcpClients, err := connectMCPServers(ctx, cfg.MCP.Servers, reg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range mcpClients {
			c.Close()
		}
	}()

	client := openai.NewClient(cfg.Engine.BackendURL, cfg.Engine.APIKey, cfg.Engine.HTTPTimeout)

	executor := tools.NewExecutor(reg, tools.ExecutorConfig{
		CallTimeout:    cfg.Agent.CallTimeout,
		MaxOutputBytes: cfg.Agent.MaxOutputBytes,
	})

	agent, err := engine.New(reg, executor, provider.BuiltinTable(), client, engine.Config{
		Model:         cfg.Engine.Model,
		SystemPrompt:  cfg.Engine.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		TurnTimeout:   cfg.Agent.TurnTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	slog.Info("agent ready",
		"provider", cfg.Engine.Provider,
		"model", cfg.Engine.Model,
		"storage", cfg.Storage.Type,
		"tools", reg.Len(),
	)

	if ask != "" {
		return answerOnce(ctx, agent, cfg.Engine.Provider, ask)
	}
	return serve(ctx, cfg, agent)
}

// openDataSource builds the configured data source. The memory source is
// seeded with a small demo workforce so the agent is usable out of the box.
func openDataSource(ctx context.Context, cfg *config.Config, wl query.Whitelist) (storage.DataSource, error) {
	switch cfg.Storage.Type {
	case "memory":
		store := memory.New(wl)
		seedDemo(store)
		return store, nil

	case "sqlite":
		return sqlite.New(cfg.Storage.SQLite.Path, wl)

	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		}, wl)

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func connectMCPServers(ctx context.Context, servers []config.MCPServerConfig, reg *tools.Registry) ([]*mcptools.Client, error) {
	clients := make([]*mcptools.Client, 0, len(servers))
	for _, s := range servers {
		c := mcptools.NewClient(mcptools.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			URL:       s.URL,
			Headers:   s.Headers,
		})
		if err := c.Connect(ctx, nil); err != nil {
			return clients, err
		}
		if err := c.RegisterTools(ctx, reg); err != nil {
			c.Close()
			return clients, err
		}
		clients = append(clients, c)
		slog.Info("mcp server connected", "name", s.Name, "url", s.URL)
	}
	return clients, nil
}

func answerOnce(ctx context.Context, agent *engine.Engine, providerID, question string) error {
	result, err := agent.Run(ctx, "", question, providerID)
	if err != nil {
		return err
	}
	fmt.Println(result.FinalText)
	if result.TerminatedReason != engine.TerminatedCompleted {
		slog.Warn("agent did not complete", "reason", result.TerminatedReason)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, agent *engine.Engine) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ask", askHandler(agent, cfg.Engine.Provider))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, observability.Handler())
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type askRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

type askResponse struct {
	ConversationID   string `json:"conversation_id"`
	Answer           string `json:"answer"`
	TerminatedReason string `json:"terminated_reason"`
	Turns            int    `json:"turns"`
}

func askHandler(agent *engine.Engine, providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.Question == "" {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}

		result, err := agent.Run(r.Context(), req.ConversationID, req.Question, providerID)
		if err != nil {
			slog.Error("agent run failed", "error", err)
			http.Error(w, "agent run failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(askResponse{
			ConversationID:   result.Transcript.ConversationID,
			Answer:           result.FinalText,
			TerminatedReason: string(result.TerminatedReason),
			Turns:            len(result.Transcript.Turns),
		})
	}
}

// seedDemo loads a small workforce sample into the memory source.
func seedDemo(store *memory.Store) {
	now := time.Now().UTC()
	store.Seed("employee", []query.Row{
		{"hr_code": "E1", "name": "Ada Martin", "department": "Engineering", "role": "Engineer", "cost": 9200.0, "performance": 4.5, "months_of_service": 38.0, "recorded_at": now},
		{"hr_code": "E2", "name": "Brice Kato", "department": "Engineering", "role": "Engineer", "cost": 8700.0, "performance": 4.1, "months_of_service": 22.0, "recorded_at": now},
		{"hr_code": "E3", "name": "Carol Yun", "department": "Sales", "role": "Account Exec", "cost": 7100.0, "performance": 3.8, "months_of_service": 15.0, "recorded_at": now},
		{"hr_code": "E4", "name": "Deniz Aksoy", "department": "Sales", "role": "Manager", "cost": 9900.0, "performance": 4.7, "months_of_service": 51.0, "recorded_at": now},
		{"hr_code": "E5", "name": "Elena Ruiz", "department": "Finance", "role": "Analyst", "cost": 6800.0, "performance": 3.9, "months_of_service": 9.0, "recorded_at": now},
	})
	store.Seed("dataset", []query.Row{
		{"name": "demo-workforce", "row_count": 5.0, "uploaded_at": now},
	})
}
