package query

// Op is a whitelisted comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpContains Op = "contains"
)

// AllOps lists every operator the engine understands. Whitelists may
// allow a subset.
var AllOps = []Op{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpContains}

// Filter is one comparison clause. Clauses in a request are ANDed;
// top-level OR is deliberately unsupported.
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Aggregate names the single aggregate function a request may apply.
type Aggregate string

const (
	AggNone  Aggregate = ""
	AggCount Aggregate = "count"
	AggSum   Aggregate = "sum"
	AggAvg   Aggregate = "avg"
	AggMin   Aggregate = "min"
	AggMax   Aggregate = "max"
)

// Request is a structured, whitelist-bound fetch. It is the only shape
// the data sources accept; they assume it has already been validated.
type Request struct {
	// Entity names one of the enumerated entities.
	Entity string `json:"entity"`

	// Filters is the conjunction of clauses.
	Filters []Filter `json:"filters,omitempty"`

	// GroupBy lists grouping fields for an aggregate request.
	GroupBy []string `json:"group_by,omitempty"`

	// Aggregate selects the aggregate function, if any.
	Aggregate Aggregate `json:"aggregate,omitempty"`

	// AggregateField is the numeric field the aggregate applies to.
	// Unused for count.
	AggregateField string `json:"aggregate_field,omitempty"`

	// Limit caps returned rows. The engine clamps it to the whitelist
	// maximum before the request reaches a data source.
	Limit int `json:"limit,omitempty"`
}

// Row is one record of tabular data.
type Row = map[string]any

// Group is one bucket of a grouped aggregate.
type Group struct {
	// Key holds the grouping field values for this bucket.
	Key map[string]any `json:"key"`

	// Value is the aggregate over the bucket.
	Value float64 `json:"value"`
}

// Result is the outcome of a validated request. Exactly one of Rows,
// Groups, or Value is populated, depending on the request shape.
type Result struct {
	// Rows holds plain select results.
	Rows []Row `json:"rows,omitempty"`

	// Groups holds grouped aggregate results.
	Groups []Group `json:"groups,omitempty"`

	// Value holds an ungrouped aggregate result.
	Value *float64 `json:"value,omitempty"`

	// TruncatedGroups indicates the group list exceeded the whitelist's
	// cardinality cap and was cut.
	TruncatedGroups bool `json:"truncated_groups,omitempty"`
}
