package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container, runs migrations, and seeds a
// small workforce. Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("tally_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	}, query.DefaultWhitelist())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	seed := `
		INSERT INTO employees (hr_code, name, department, role, cost, performance, months_of_service, recorded_at) VALUES
			('E1', 'Ada Martin',  'Engineering', 'Engineer',       9200, 4.5, 38, '2026-03-01T12:00:00Z'),
			('E1', 'Ada Martin',  'Engineering', 'Staff Engineer', 9800, 4.6, 40, '2026-05-01T12:00:00Z'),
			('E2', 'Brice Kato',  'Engineering', 'Engineer',       8700, 4.1, 22, '2026-03-01T12:00:00Z'),
			('E3', 'Carol Yun',   'Sales',       'Account Exec',   7100, 3.8, 15, '2026-03-01T12:00:00Z'),
			('E4', 'Deniz Aksoy', 'Sales',       'Manager',        9900, 4.7, 51, '2026-03-01T12:00:00Z')
	`
	if _, err := store.Pool().Exec(ctx, seed); err != nil {
		t.Fatalf("seeding employees: %v", err)
	}

	return store
}

func TestPostgres_FetchLatest(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	row, err := store.FetchLatest(ctx, "employee", "E1")
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if row["role"] != "Staff Engineer" {
		t.Errorf("role = %v, want the latest record's Staff Engineer", row["role"])
	}

	_, err = store.FetchLatest(ctx, "employee", "E99")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FetchLatest(absent) error = %v, want ErrNotFound", err)
	}
}

func TestPostgres_SelectRows(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	result, err := store.Select(ctx, &query.Request{
		Entity: "employee",
		Filters: []query.Filter{
			{Field: "department", Op: query.OpEq, Value: "Sales"},
		},
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}
	if result.Rows[0]["hr_code"] != "E3" {
		t.Errorf("rows[0].hr_code = %v, want E3", result.Rows[0]["hr_code"])
	}
}

func TestPostgres_SelectContainsIsCaseInsensitive(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	result, err := store.Select(ctx, &query.Request{
		Entity: "employee",
		Filters: []query.Filter{
			{Field: "name", Op: query.OpContains, Value: "MARTIN"},
		},
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("rows = %d, want both E1 records via ILIKE", len(result.Rows))
	}
}

func TestPostgres_Aggregates(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	result, err := store.Select(ctx, &query.Request{
		Entity:    "employee",
		Filters:   []query.Filter{{Field: "department", Op: query.OpEq, Value: "Sales"}},
		Aggregate: query.AggAvg, AggregateField: "cost",
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.Value == nil || *result.Value != 8500 {
		t.Errorf("avg cost = %v, want 8500", result.Value)
	}

	grouped, err := store.Select(ctx, &query.Request{
		Entity:    "employee",
		GroupBy:   []string{"department"},
		Aggregate: query.AggCount,
	})
	if err != nil {
		t.Fatalf("Select(grouped) error = %v", err)
	}
	if len(grouped.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(grouped.Groups))
	}
	if grouped.Groups[0].Key["department"] != "Engineering" || grouped.Groups[0].Value != 3 {
		t.Errorf("groups[0] = %+v, want Engineering count 3", grouped.Groups[0])
	}
}
