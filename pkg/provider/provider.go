package provider

import (
	"context"
	"encoding/json"
)

// ModelClient abstracts a language-model completion backend. Given a
// conversation and an optional tool catalog, it returns either free text
// or a structured set of requested tool invocations.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type ModelClient interface {
	// Complete performs one completion request.
	Complete(ctx context.Context, req *Request) (*Output, error)
}

// Request is the backend-facing completion request.
type Request struct {
	// Model is the backend model identifier.
	Model string `json:"model"`

	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`

	// Tools carries the catalog for native-calling providers. Empty for
	// simulation providers, whose catalog lives in the system prompt.
	Tools []ToolSpec `json:"tools,omitempty"`

	// ToolChoice is an optional directive ("auto", "none", or a tool
	// name) for providers that support it.
	ToolChoice string `json:"tool_choice,omitempty"`
}

// Message is one entry in the conversation transcript sent to the model.
type Message struct {
	// Role is "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the message text. For tool results it carries the
	// JSON-encoded output payload.
	Content string `json:"content"`

	// ToolCalls echoes the assistant's requested calls on assistant
	// messages that triggered tool execution.
	ToolCalls []ToolCallPayload `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCallPayload is the wire shape of one requested invocation:
// {id, name, arguments}.
type ToolCallPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec is the wire shape of one tool in a native-calling request.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Output is the model's answer to one Request: free text, zero or more
// structured tool calls, or both.
type Output struct {
	// Text is the free-text content, possibly empty when the model only
	// requests tool calls.
	Text string

	// ToolCalls holds the structured calls from native-calling
	// providers. Always empty for simulation providers.
	ToolCalls []ToolCallPayload
}
