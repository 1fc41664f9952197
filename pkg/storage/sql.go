package storage

import (
	"fmt"
	"strings"

	"github.com/tally-ai/tally/pkg/query"
)

// Dialect captures the SQL differences between the sqlite and postgres
// sources. Field and table identifiers in generated SQL always come from
// the whitelist, never from the request values; request values are always
// bound as parameters.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// ILike is the case-insensitive substring match operator.
	ILike string
}

// SQLiteDialect uses ? placeholders; sqlite's LIKE is case-insensitive
// for ASCII by default.
var SQLiteDialect = Dialect{
	Placeholder: func(int) string { return "?" },
	ILike:       "LIKE",
}

// PostgresDialect uses $n placeholders and ILIKE.
var PostgresDialect = Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	ILike:       "ILIKE",
}

var opSQL = map[query.Op]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// BuildSelect compiles a validated request into a parameterized SELECT.
// The request must already have passed engine validation: fields and the
// entity are assumed whitelisted, and the limit is assumed clamped.
func BuildSelect(req *query.Request, rules query.EntityRules, d Dialect, maxGroups int) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}

	grouped := req.Aggregate != query.AggNone && len(req.GroupBy) > 0

	b.WriteString("SELECT ")
	switch {
	case grouped:
		b.WriteString(strings.Join(req.GroupBy, ", "))
		b.WriteString(", ")
		b.WriteString(aggregateSQL(req))
	case req.Aggregate != query.AggNone:
		b.WriteString(aggregateSQL(req))
	default:
		b.WriteString(strings.Join(rules.Fields, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(rules.Table)

	if len(req.Filters) > 0 {
		b.WriteString(" WHERE ")
		for i, f := range req.Filters {
			if i > 0 {
				b.WriteString(" AND ")
			}
			switch f.Op {
			case query.OpIn:
				values, _ := f.Value.([]any)
				placeholders := make([]string, 0, len(values))
				for _, v := range values {
					placeholders = append(placeholders, arg(v))
				}
				fmt.Fprintf(&b, "%s IN (%s)", f.Field, strings.Join(placeholders, ", "))
			case query.OpContains:
				pattern := "%" + escapeLike(fmt.Sprintf("%v", f.Value)) + "%"
				fmt.Fprintf(&b, `%s %s %s ESCAPE '\'`, f.Field, d.ILike, arg(pattern))
			default:
				fmt.Fprintf(&b, "%s %s %s", f.Field, opSQL[f.Op], arg(f.Value))
			}
		}
	}

	switch {
	case grouped:
		groupCols := strings.Join(req.GroupBy, ", ")
		fmt.Fprintf(&b, " GROUP BY %s ORDER BY %s", groupCols, groupCols)
		if maxGroups > 0 {
			fmt.Fprintf(&b, " LIMIT %d", maxGroups)
		}
	case req.Aggregate != query.AggNone:
		// Single aggregate row, no ordering or limit needed.
	default:
		fmt.Fprintf(&b, " ORDER BY %s LIMIT %d", rules.KeyField, req.Limit)
	}

	return b.String(), args
}

// BuildFetchLatest compiles a latest-record-by-key point lookup.
func BuildFetchLatest(rules query.EntityRules, d Dialect) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s DESC LIMIT 1",
		strings.Join(rules.Fields, ", "),
		rules.Table,
		rules.KeyField,
		d.Placeholder(1),
		rules.TimeField,
	)
}

// escapeLike neutralizes LIKE metacharacters so a contains value matches
// literally, as the memory source does.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func aggregateSQL(req *query.Request) string {
	if req.Aggregate == query.AggCount {
		return "COUNT(*) AS agg_value"
	}
	// Cast keeps the scan type a plain float across both backends
	// (postgres AVG/SUM over integers otherwise yields NUMERIC).
	return fmt.Sprintf("CAST(%s(%s) AS DOUBLE PRECISION) AS agg_value",
		strings.ToUpper(string(req.Aggregate)), req.AggregateField)
}
