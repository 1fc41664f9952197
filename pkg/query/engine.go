package query

import (
	"context"
	"fmt"
)

// Source is the data-source side of the engine: it receives only
// requests the engine has already validated and clamped, and answers
// them read-only.
type Source interface {
	Select(ctx context.Context, req *Request) (*Result, error)
}

// Engine validates requests against the whitelist and dispatches them to
// the data source. It has no side effects and never mutates data.
type Engine struct {
	wl     Whitelist
	source Source
}

// New creates an Engine. The whitelist is copied by value; a malformed
// whitelist should have been rejected at configuration load time.
func New(wl Whitelist, source Source) *Engine {
	return &Engine{wl: wl, source: source}
}

// Whitelist returns the engine's whitelist.
func (e *Engine) Whitelist() Whitelist {
	return e.wl
}

// Validate checks every clause of the request against the whitelist. It
// returns UnknownEntityError or ValidationError naming the offender; it
// never silently drops a clause.
func (e *Engine) Validate(req *Request) error {
	rules, ok := e.wl.Rules(req.Entity)
	if !ok {
		return &UnknownEntityError{Entity: req.Entity}
	}

	for _, f := range req.Filters {
		if !rules.HasField(f.Field) {
			return &ValidationError{
				Entity: req.Entity, Field: f.Field,
				Reason: "not in the field whitelist",
			}
		}
		if !e.wl.AllowsOp(f.Op) {
			return &ValidationError{
				Entity: req.Entity, Op: f.Op,
				Reason: "not in the operator whitelist",
			}
		}
		if f.Op == OpIn {
			values, ok := f.Value.([]any)
			if !ok {
				return &ValidationError{
					Entity: req.Entity, Field: f.Field, Op: OpIn,
					Reason: "value must be a list",
				}
			}
			if len(values) == 0 {
				return &ValidationError{
					Entity: req.Entity, Field: f.Field, Op: OpIn,
					Reason: "value list must not be empty",
				}
			}
			if len(values) > e.wl.MaxInValues {
				return &ValidationError{
					Entity: req.Entity, Field: f.Field, Op: OpIn,
					Reason: fmt.Sprintf("value list exceeds the maximum of %d", e.wl.MaxInValues),
				}
			}
		}
	}

	for _, g := range req.GroupBy {
		if !rules.HasField(g) {
			return &ValidationError{
				Entity: req.Entity, Field: g,
				Reason: "not in the field whitelist",
			}
		}
	}

	switch req.Aggregate {
	case AggNone, AggCount:
		// count needs no target field.
	case AggSum, AggAvg, AggMin, AggMax:
		if !rules.HasNumericField(req.AggregateField) {
			return &ValidationError{
				Entity: req.Entity, Field: req.AggregateField,
				Reason: "not in the numeric field whitelist",
			}
		}
	default:
		return &ValidationError{
			Entity: req.Entity,
			Reason: fmt.Sprintf("unknown aggregate %q", req.Aggregate),
		}
	}

	if len(req.GroupBy) > 0 && req.Aggregate == AggNone {
		return &ValidationError{
			Entity: req.Entity,
			Reason: "group_by requires an aggregate",
		}
	}

	return nil
}

// Run validates the request, clamps its limit to the whitelist maximum,
// and dispatches to the data source. The group list of the result is cut
// to the whitelist's cardinality cap.
func (e *Engine) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	// Work on a copy so clamping is invisible to the caller.
	clamped := *req
	if clamped.Limit <= 0 || clamped.Limit > e.wl.MaxRows {
		clamped.Limit = e.wl.MaxRows
	}

	result, err := e.source.Select(ctx, &clamped)
	if err != nil {
		return nil, err
	}

	if e.wl.MaxGroups > 0 && len(result.Groups) > e.wl.MaxGroups {
		result.Groups = result.Groups[:e.wl.MaxGroups]
		result.TruncatedGroups = true
	}

	return result, nil
}
