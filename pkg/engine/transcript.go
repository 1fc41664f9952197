package engine

import (
	"github.com/tally-ai/tally/pkg/provider"
	"github.com/tally-ai/tally/pkg/tools"
)

// TerminatedReason says how a conversation ended. Callers use it to
// distinguish a clean answer from one truncated by the iteration cap.
type TerminatedReason string

const (
	// TerminatedCompleted is the normal path: a turn produced no tool
	// calls and its text is the final answer.
	TerminatedCompleted TerminatedReason = "completed"

	// TerminatedMaxIterations marks forced termination: the iteration
	// cap or the per-turn deadline cut the loop short and the last
	// available text, if any, is returned as an incomplete answer.
	TerminatedMaxIterations TerminatedReason = "max_iterations"

	// TerminatedFatalError marks an unrecoverable model-interface
	// failure for this conversation turn.
	TerminatedFatalError TerminatedReason = "fatal_error"
)

// Turn records one request/response cycle of the loop: the messages
// sent, the raw model output, the parsed calls, and their results.
type Turn struct {
	// Prompt is a snapshot of the messages sent this turn.
	Prompt []provider.Message `json:"prompt"`

	// RawOutput is the model's text output, empty when the model only
	// returned structured calls.
	RawOutput string `json:"raw_output"`

	// Calls are the parsed tool calls, in emission order.
	Calls []tools.Call `json:"calls,omitempty"`

	// Results are the tool results, matched to Calls by call id.
	Results []tools.Result `json:"results,omitempty"`
}

// Transcript is the full record of one loop invocation. It is owned
// exclusively by that invocation; persistence is left to the caller.
type Transcript struct {
	ConversationID string `json:"conversation_id"`
	Turns          []Turn `json:"turns"`
}

// Result is what Run hands back to the invoking layer.
type Result struct {
	FinalText        string           `json:"final_text"`
	Transcript       *Transcript      `json:"transcript"`
	TerminatedReason TerminatedReason `json:"terminated_reason"`
}
