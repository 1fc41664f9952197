// Package employee provides the built-in workforce tools: a keyed
// employee lookup plus search and aggregation tools that delegate to the
// whitelisted query engine. All tools are read-only; handlers receive
// pre-validated arguments from the executor and return JSON-like values
// or structured errors, never panics.
package employee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tally-ai/tally/pkg/observability"
	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
	"github.com/tally-ai/tally/pkg/tools"
)

const category = "workforce"

// Register adds the workforce tools to the registry. Call once at
// process start; duplicate registration surfaces as DuplicateToolError.
func Register(reg *tools.Registry, src storage.DataSource, eng *query.Engine) error {
	defs := []tools.Definition{
		getEmployeeDef(src),
		searchEmployeesDef(eng),
		aggregateEmployeesDef(eng),
		describeEntitiesDef(eng),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func getEmployeeDef(src storage.DataSource) tools.Definition {
	return tools.Definition{
		Name:        "get_employee",
		Description: "Look up a single employee by HR code. Returns the most recent record for that code.",
		Category:    category,
		Parameters: []tools.Parameter{
			{
				Name:        "hr_code",
				Type:        tools.ParamString,
				Required:    true,
				Description: "The employee's HR code, e.g. \"E42\".",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			code := args["hr_code"].(string)
			row, err := src.FetchLatest(ctx, "employee", code)
			if err == storage.ErrNotFound {
				return nil, fmt.Errorf("no employee with hr_code %q", code)
			}
			if err != nil {
				return nil, err
			}
			return row, nil
		},
	}
}

func searchEmployeesDef(eng *query.Engine) tools.Definition {
	return tools.Definition{
		Name: "search_employees",
		Description: "Search employee records with filters. Filters are a list of " +
			"{field, op, value} clauses combined with AND. " +
			"Allowed ops: eq, ne, gt, gte, lt, lte, in, contains.",
		Category: category,
		Parameters: []tools.Parameter{
			{
				Name:        "filters",
				Type:        tools.ParamObject,
				Description: "List of filter clauses, e.g. [{\"field\":\"department\",\"op\":\"eq\",\"value\":\"Sales\"}].",
			},
			{
				Name:        "limit",
				Type:        tools.ParamNumber,
				Description: "Maximum number of rows to return.",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			filters, err := decodeFilters(args["filters"])
			if err != nil {
				return nil, err
			}
			req := &query.Request{
				Entity:  "employee",
				Filters: filters,
				Limit:   intArg(args, "limit"),
			}
			result, err := runQuery(ctx, eng, req)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"count": len(result.Rows),
				"rows":  result.Rows,
			}, nil
		},
	}
}

func aggregateEmployeesDef(eng *query.Engine) tools.Definition {
	return tools.Definition{
		Name: "aggregate_employees",
		Description: "Compute an aggregate (count, sum, avg, min, max) over records " +
			"matching the filters, optionally grouped by fields. " +
			"Entities: " + entityList(eng) + ".",
		Category: category,
		Parameters: []tools.Parameter{
			{
				Name:        "entity",
				Type:        tools.ParamString,
				Required:    true,
				Description: "The entity to aggregate over, e.g. \"employee\".",
			},
			{
				Name:        "filters",
				Type:        tools.ParamObject,
				Description: "List of {field, op, value} clauses combined with AND.",
			},
			{
				Name:        "aggregate",
				Type:        tools.ParamEnum,
				Required:    true,
				Enum:        []string{"count", "sum", "avg", "min", "max"},
				Description: "The aggregate function to apply.",
			},
			{
				Name:        "field",
				Type:        tools.ParamString,
				Description: "The numeric field to aggregate. Not needed for count.",
			},
			{
				Name:        "group_by",
				Type:        tools.ParamObject,
				Description: "List of fields to group by, e.g. [\"department\"].",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			filters, err := decodeFilters(args["filters"])
			if err != nil {
				return nil, err
			}
			groupBy, err := decodeStrings(args["group_by"])
			if err != nil {
				return nil, fmt.Errorf("group_by: %w", err)
			}

			agg := query.Aggregate(args["aggregate"].(string))
			field, _ := args["field"].(string)

			req := &query.Request{
				Entity:         args["entity"].(string),
				Filters:        filters,
				GroupBy:        groupBy,
				Aggregate:      agg,
				AggregateField: field,
			}
			result, err := runQuery(ctx, eng, req)
			if err != nil {
				return nil, err
			}

			if len(result.Groups) > 0 || len(groupBy) > 0 {
				out := map[string]any{
					"aggregate": string(agg),
					"groups":    result.Groups,
				}
				if result.TruncatedGroups {
					out["truncated_groups"] = true
				}
				return out, nil
			}

			var value float64
			if result.Value != nil {
				value = *result.Value
			}
			return map[string]any{string(agg): value}, nil
		},
	}
}

func describeEntitiesDef(eng *query.Engine) tools.Definition {
	return tools.Definition{
		Name:        "describe_entities",
		Description: "List the queryable entities with their filterable and numeric fields.",
		Category:    "metadata",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			wl := eng.Whitelist()

			names := make([]string, 0, len(wl.Entities))
			for name := range wl.Entities {
				names = append(names, name)
			}
			sort.Strings(names)

			entities := make([]map[string]any, 0, len(names))
			for _, name := range names {
				rules := wl.Entities[name]
				entities = append(entities, map[string]any{
					"entity":         name,
					"fields":         rules.Fields,
					"numeric_fields": rules.NumericFields,
				})
			}
			return map[string]any{
				"entities":  entities,
				"operators": wl.Operators,
			}, nil
		},
	}
}

// runQuery wraps engine execution so every rejected request, whatever
// tool it came in through, shows up in the validation failure counter.
func runQuery(ctx context.Context, eng *query.Engine, req *query.Request) (*query.Result, error) {
	result, err := eng.Run(ctx, req)
	if err != nil {
		var ve *query.ValidationError
		var ue *query.UnknownEntityError
		switch {
		case errors.As(err, &ve):
			observability.QueryValidationFailures.WithLabelValues(ve.Entity).Inc()
		case errors.As(err, &ue):
			observability.QueryValidationFailures.WithLabelValues(ue.Entity).Inc()
		}
		return nil, err
	}
	return result, nil
}

// decodeFilters converts the raw filters argument into query clauses via
// a JSON round-trip, so the clause shape matches the documented JSON.
func decodeFilters(raw any) ([]query.Filter, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}
	var filters []query.Filter
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("filters must be a list of {field, op, value} clauses: %w", err)
	}
	return filters, nil
}

func decodeStrings(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of field names")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a list of field names")
		}
		out = append(out, s)
	}
	return out, nil
}

func intArg(args map[string]any, key string) int {
	switch n := args[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func entityList(eng *query.Engine) string {
	wl := eng.Whitelist()
	names := make([]string, 0, len(wl.Entities))
	for name := range wl.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
