package tools

import (
	"context"
	"errors"
	"testing"
)

func noopHandler(ctx context.Context, args map[string]any) (any, error) {
	return "ok", nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Definition{Name: "lookup", Handler: noopHandler})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	def, err := reg.Get("lookup")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if def.Name != "lookup" {
		t.Errorf("Get() name = %q, want %q", def.Name, "lookup")
	}
	if !reg.Has("lookup") {
		t.Error("Has() = false, want true")
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{Name: "dup", Handler: noopHandler}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := reg.Register(Definition{Name: "dup", Handler: noopHandler})
	var dupErr *DuplicateToolError
	if !errors.As(err, &dupErr) {
		t.Fatalf("second Register() error = %v, want DuplicateToolError", err)
	}
	if dupErr.Name != "dup" {
		t.Errorf("DuplicateToolError.Name = %q, want %q", dupErr.Name, "dup")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("missing")
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Get() error = %v, want NotFoundError", err)
	}
}

func TestRegistryListPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		reg.MustRegister(Definition{Name: n, Handler: noopHandler})
	}

	list := reg.List()
	if len(list) != len(names) {
		t.Fatalf("List() len = %d, want %d", len(list), len(names))
	}
	for i, n := range names {
		if list[i].Name != n {
			t.Errorf("List()[%d].Name = %q, want %q", i, list[i].Name, n)
		}
	}
	if reg.Len() != len(names) {
		t.Errorf("Len() = %d, want %d", reg.Len(), len(names))
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Definition{Name: "once", Handler: noopHandler})

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() did not panic on duplicate")
		}
	}()
	reg.MustRegister(Definition{Name: "once", Handler: noopHandler})
}
