package query

import "fmt"

// UnknownEntityError reports a request naming an entity outside the
// enumerated set.
type UnknownEntityError struct {
	Entity string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Entity)
}

// ValidationError reports a request clause outside the whitelist. The
// offending field or operator is always named; a clause is never
// silently dropped.
type ValidationError struct {
	Entity string
	Field  string
	Op     Op
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Op != "":
		return fmt.Sprintf("entity %q: operator %q not allowed on field %q: %s", e.Entity, e.Op, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("entity %q: field %q: %s", e.Entity, e.Field, e.Reason)
	case e.Op != "":
		return fmt.Sprintf("entity %q: operator %q: %s", e.Entity, e.Op, e.Reason)
	default:
		return fmt.Sprintf("entity %q: %s", e.Entity, e.Reason)
	}
}
