package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:", query.DefaultWhitelist())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	schema := `
		CREATE TABLE employees (
			hr_code TEXT NOT NULL,
			name TEXT NOT NULL,
			department TEXT NOT NULL,
			role TEXT NOT NULL,
			cost REAL NOT NULL,
			performance REAL NOT NULL,
			months_of_service REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);
		INSERT INTO employees VALUES
			('E1', 'Ada Martin',  'Engineering', 'Engineer',       9200, 4.5, 38, '2026-03-01T12:00:00Z'),
			('E1', 'Ada Martin',  'Engineering', 'Staff Engineer', 9800, 4.6, 40, '2026-05-01T12:00:00Z'),
			('E2', 'Brice Kato',  'Engineering', 'Engineer',       8700, 4.1, 22, '2026-03-01T12:00:00Z'),
			('E3', 'Carol Yun',   'Sales',       'Account Exec',   7100, 3.8, 15, '2026-03-01T12:00:00Z'),
			('E4', 'Deniz Aksoy', 'Sales',       'Manager',        9900, 4.7, 51, '2026-03-01T12:00:00Z');
	`
	if _, err := s.DB().Exec(schema); err != nil {
		t.Fatalf("seeding schema: %v", err)
	}
	return s
}

func TestFetchLatest(t *testing.T) {
	s := newTestStore(t)

	row, err := s.FetchLatest(context.Background(), "employee", "E1")
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if row["role"] != "Staff Engineer" {
		t.Errorf("role = %v, want the latest record's Staff Engineer", row["role"])
	}
}

func TestFetchLatestNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FetchLatest(context.Background(), "employee", "E99")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FetchLatest() error = %v, want ErrNotFound", err)
	}
}

func TestSelectRows(t *testing.T) {
	s := newTestStore(t)

	result, err := s.Select(context.Background(), &query.Request{
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
	// Rows are ordered by the key field.
	if result.Rows[0]["hr_code"] != "E3" || result.Rows[1]["hr_code"] != "E4" {
		t.Errorf("row order = %v, %v, want E3, E4",
			result.Rows[0]["hr_code"], result.Rows[1]["hr_code"])
	}
}

func TestSelectInAndContains(t *testing.T) {
	s := newTestStore(t)

	result, err := s.Select(context.Background(), &query.Request{
		Entity: "employee",
		Filters: []query.Filter{
			{Field: "hr_code", Op: query.OpIn, Value: []any{"E2", "E3", "E4"}},
			{Field: "name", Op: query.OpContains, Value: "kato"},
		},
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["hr_code"] != "E2" {
		t.Errorf("rows = %v, want the single E2 match", result.Rows)
	}
}

func TestSelectUngroupedAggregate(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		req  *query.Request
		want float64
	}{
		{
			name: "count",
			req:  &query.Request{Entity: "employee", Aggregate: query.AggCount},
			want: 5,
		},
		{
			name: "avg over filtered rows",
			req: &query.Request{
				Entity:    "employee",
				Filters:   []query.Filter{{Field: "department", Op: query.OpEq, Value: "Sales"}},
				Aggregate: query.AggAvg, AggregateField: "cost",
			},
			want: 8500,
		},
		{
			name: "max",
			req: &query.Request{
				Entity:    "employee",
				Aggregate: query.AggMax, AggregateField: "months_of_service",
			},
			want: 51,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Select(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if result.Value == nil || *result.Value != tt.want {
				t.Errorf("Value = %v, want %v", result.Value, tt.want)
			}
		})
	}
}

func TestSelectGroupedAggregate(t *testing.T) {
	s := newTestStore(t)

	result, err := s.Select(context.Background(), &query.Request{
		Entity:    "employee",
		GroupBy:   []string{"department"},
		Aggregate: query.AggCount,
	})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(result.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(result.Groups))
	}
	if result.Groups[0].Key["department"] != "Engineering" || result.Groups[0].Value != 3 {
		t.Errorf("groups[0] = %+v, want Engineering count 3", result.Groups[0])
	}
	if result.Groups[1].Key["department"] != "Sales" || result.Groups[1].Value != 2 {
		t.Errorf("groups[1] = %+v, want Sales count 2", result.Groups[1])
	}
}

func TestSelectUnknownEntity(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Select(context.Background(), &query.Request{Entity: "payroll"})
	var ue *query.UnknownEntityError
	if !errors.As(err, &ue) {
		t.Errorf("Select() error = %v, want UnknownEntityError", err)
	}
}
