package tools

import "fmt"

// DuplicateToolError reports a second registration under an existing name.
// Duplicate registration is a configuration error: it can only happen at
// process start and callers are expected to treat it as fatal.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// NotFoundError reports a lookup of an unregistered tool. Absence is a
// normal outcome visible to the model, not a fault: callers convert it
// to an error Result rather than aborting.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// UnexpectedArgumentError reports an argument key that is not declared
// by the tool's parameter list.
type UnexpectedArgumentError struct {
	Tool string
	Key  string
}

func (e *UnexpectedArgumentError) Error() string {
	return fmt.Sprintf("tool %q: unexpected argument %q", e.Tool, e.Key)
}

// MissingArgumentError reports an absent required parameter.
type MissingArgumentError struct {
	Tool  string
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("tool %q: missing required argument %q", e.Tool, e.Param)
}

// ArgumentTypeError reports a value whose JSON type does not match the
// parameter's declared type.
type ArgumentTypeError struct {
	Tool  string
	Param string
	Want  ParamType
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("tool %q: argument %q must be of type %s", e.Tool, e.Param, e.Want)
}

// InvalidEnumValueError reports an enum argument outside the declared set.
type InvalidEnumValueError struct {
	Tool    string
	Param   string
	Value   string
	Allowed []string
}

func (e *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("tool %q: argument %q has invalid value %q, allowed: %v",
		e.Tool, e.Param, e.Value, e.Allowed)
}

// TimeoutError marks a tool execution that exceeded its per-call deadline.
type TimeoutError struct {
	Tool    string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %q timed out after %s", e.Tool, e.Timeout)
}
