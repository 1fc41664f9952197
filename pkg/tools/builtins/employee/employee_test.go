package employee

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage/memory"
	"github.com/tally-ai/tally/pkg/tools"
)

func newTestSetup(t *testing.T) (*tools.Registry, *tools.Executor) {
	t.Helper()

	wl := query.DefaultWhitelist()
	store := memory.New(wl)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Seed("employee", []query.Row{
		{"hr_code": "E1", "name": "Ada Martin", "department": "Engineering", "role": "Engineer", "cost": 9200.0, "performance": 4.5, "months_of_service": 38.0, "recorded_at": base},
		{"hr_code": "E1", "name": "Ada Martin", "department": "Engineering", "role": "Staff Engineer", "cost": 9800.0, "performance": 4.6, "months_of_service": 40.0, "recorded_at": base.AddDate(0, 2, 0)},
		{"hr_code": "E2", "name": "Brice Kato", "department": "Engineering", "role": "Engineer", "cost": 8700.0, "performance": 4.1, "months_of_service": 22.0, "recorded_at": base},
		{"hr_code": "E3", "name": "Carol Yun", "department": "Sales", "role": "Account Exec", "cost": 7100.0, "performance": 3.8, "months_of_service": 15.0, "recorded_at": base},
	})

	eng := query.New(wl, store)
	reg := tools.NewRegistry()
	if err := Register(reg, store, eng); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg, tools.NewExecutor(reg, tools.ExecutorConfig{})
}

func TestRegisterAddsAllTools(t *testing.T) {
	reg, _ := newTestSetup(t)

	for _, name := range []string{
		"get_employee", "search_employees", "aggregate_employees", "describe_entities",
	} {
		if !reg.Has(name) {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestGetEmployee(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "get_employee", Arguments: `{"hr_code":"E1"}`,
	})
	if res.IsError {
		t.Fatalf("get_employee failed: %s", res.Output)
	}
	// The latest record for E1 wins.
	if !strings.Contains(res.Output, "Staff Engineer") {
		t.Errorf("output = %s, want the latest record", res.Output)
	}
}

func TestGetEmployeeNotFound(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "get_employee", Arguments: `{"hr_code":"E99"}`,
	})
	if !res.IsError {
		t.Fatal("get_employee(E99) IsError = false, want true")
	}
	if !strings.Contains(res.Output, "E99") {
		t.Errorf("output = %q, want message naming the missing code", res.Output)
	}
}

func TestSearchEmployees(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "search_employees",
		Arguments: `{"filters":[{"field":"department","op":"eq","value":"Engineering"}],"limit":10}`,
	})
	if res.IsError {
		t.Fatalf("search_employees failed: %s", res.Output)
	}
	if !strings.Contains(res.Output, `"count":3`) {
		t.Errorf("output = %s, want count 3", res.Output)
	}
}

func TestSearchEmployeesRejectsNonWhitelistedField(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "search_employees",
		Arguments: `{"filters":[{"field":"salary_band","op":"eq","value":1}]}`,
	})
	if !res.IsError {
		t.Fatal("search with non-whitelisted field succeeded, want error")
	}
	if !strings.Contains(res.Output, "salary_band") {
		t.Errorf("output = %q, want the offending field named", res.Output)
	}
}

func TestAggregateEmployeesCount(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "aggregate_employees",
		Arguments: `{"entity":"employee","aggregate":"count","filters":[{"field":"department","op":"eq","value":"Sales"}]}`,
	})
	if res.IsError {
		t.Fatalf("aggregate_employees failed: %s", res.Output)
	}
	if !strings.Contains(res.Output, `{"count":1}`) {
		t.Errorf("output = %s, want {\"count\":1}", res.Output)
	}
}

func TestAggregateEmployeesGrouped(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "aggregate_employees",
		Arguments: `{"entity":"employee","aggregate":"avg","field":"cost","group_by":["department"]}`,
	})
	if res.IsError {
		t.Fatalf("aggregate_employees failed: %s", res.Output)
	}
	for _, want := range []string{`"aggregate":"avg"`, `"groups"`, "Engineering", "Sales"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output = %s, missing %q", res.Output, want)
		}
	}
}

func TestAggregateEmployeesUnknownEntity(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "aggregate_employees",
		Arguments: `{"entity":"payroll","aggregate":"count"}`,
	})
	if !res.IsError {
		t.Fatal("aggregate over unknown entity succeeded, want error")
	}
	if !strings.Contains(res.Output, "payroll") {
		t.Errorf("output = %q, want the unknown entity named", res.Output)
	}
}

func TestAggregateEmployeesRejectsUnknownFunction(t *testing.T) {
	_, exec := newTestSetup(t)

	// The aggregate parameter is an enum, so the executor rejects this
	// before any query runs.
	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "aggregate_employees",
		Arguments: `{"entity":"employee","aggregate":"median"}`,
	})
	if !res.IsError {
		t.Fatal("aggregate median succeeded, want enum rejection")
	}
	if !strings.Contains(res.Output, "median") {
		t.Errorf("output = %q, want the invalid value named", res.Output)
	}
}

func TestDescribeEntities(t *testing.T) {
	_, exec := newTestSetup(t)

	res := exec.Execute(context.Background(), tools.Call{
		ID: "c1", Name: "describe_entities", Arguments: `{}`,
	})
	if res.IsError {
		t.Fatalf("describe_entities failed: %s", res.Output)
	}
	for _, want := range []string{`"entity":"dataset"`, `"entity":"employee"`, `"operators"`, "months_of_service"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
