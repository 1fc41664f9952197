package tools

import (
	"log/slog"
)

// Registry maps tool names to definitions, preserving registration order
// for deterministic catalog rendering. Registration happens once at
// process start; afterwards the registry is immutable and safe for
// unsynchronized concurrent reads from any number of conversations.
type Registry struct {
	byName map[string]*Definition

	// ordered stores definitions in insertion order.
	ordered []*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Definition),
	}
}

// Register adds a definition. A duplicate name returns DuplicateToolError;
// callers treat that as a fatal startup configuration error.
func (r *Registry) Register(def Definition) error {
	if _, exists := r.byName[def.Name]; exists {
		return &DuplicateToolError{Name: def.Name}
	}

	d := def
	r.byName[d.Name] = &d
	r.ordered = append(r.ordered, &d)

	slog.Info("registered tool",
		"tool", d.Name,
		"category", d.Category,
		"params", len(d.Parameters),
	)
	return nil
}

// MustRegister registers a definition and panics on duplicate names.
// Intended for process-start wiring where a duplicate is a programming
// error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the definition for name, or NotFoundError. Absence is a
// normal outcome: the caller surfaces it to the model as an error result.
func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return d, nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// List returns the definitions in registration order. The returned slice
// is a copy; the definitions themselves are shared and must not be
// mutated.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.ordered)
}
