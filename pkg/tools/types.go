package tools

import (
	"context"
	"encoding/json"
	"time"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamEnum    ParamType = "enum"
	ParamObject  ParamType = "object"
)

// Parameter describes a single tool parameter. Parameters are immutable
// once their definition has been registered.
type Parameter struct {
	// Name is unique within the tool.
	Name string

	// Type is one of string, number, boolean, enum, object.
	Type ParamType

	// Required marks the parameter as mandatory.
	Required bool

	// Enum lists the allowed values, in order. Only set for ParamEnum.
	Enum []string

	// Description is free text rendered verbatim into the catalog.
	Description string
}

// Handler performs the actual work of a tool. Arguments have already been
// validated against the definition's parameter list when the handler runs.
// A handler returns a JSON-serializable value or an error; it must not
// panic, though the Executor recovers if it does.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition describes a tool: its stable name, the description shown to
// the model, its ordered parameters, a category tag used for prompt
// grouping, and the handler that executes it. Definitions are created at
// process start and never mutated or removed afterwards.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	Category    string
	Handler     Handler

	// RawSchema, when set, is a complete JSON Schema for the arguments
	// and replaces the Parameters-derived schema. Used for externally
	// discovered tools (MCP) whose schemas arrive pre-built; argument
	// validation is skipped for such tools.
	RawSchema json.RawMessage
}

// Call represents a model's request to invoke a tool. A Call is created
// when the model requests invocation and consumed exactly once by the
// Executor.
type Call struct {
	// ID is unique within a turn. It comes from the model, or is
	// synthesized by the parser when the model omits it.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments string
}

// Result is the outcome of executing one Call. Immutable once produced.
type Result struct {
	// CallID matches the originating Call.ID.
	CallID string

	// Name is the tool name, echoed for transcript readability.
	Name string

	// Output is the tool output, JSON-encoded, or an error message when
	// IsError is set.
	Output string

	// IsError marks Output as an error message rather than a payload.
	IsError bool

	// Truncated indicates the output exceeded the executor's size cap
	// and was cut. The model is told via a marker appended to Output.
	Truncated bool

	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration
}

// ErrorResult builds an error Result for the given call.
func ErrorResult(call Call, msg string) Result {
	return Result{
		CallID:  call.ID,
		Name:    call.Name,
		Output:  msg,
		IsError: true,
	}
}
