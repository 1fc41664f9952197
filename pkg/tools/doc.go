// Package tools defines the tool catalog, registry, and executor for the
// tally agent loop. A ToolDefinition describes a named operation the model
// may request, together with its typed parameter schema and the handler
// that performs the work. The Registry collects definitions once at
// process start and is read-only afterwards; the Executor is the single
// choke point between a parsed ToolCall and handler execution, applying
// argument validation, per-call timeouts, and output truncation uniformly.
//
// This package depends only on the standard library.
package tools
