package tools

import "fmt"

// ClampResult holds the outcome of clamping a turn's tool calls to the
// provider's per-request limit.
type ClampResult struct {
	// Allowed contains the calls within the limit, in emission order.
	Allowed []Call

	// Rejected contains error results for calls beyond the limit,
	// fed back to the model instead of failing the whole turn.
	Rejected []Result
}

// ClampCalls enforces the provider's max_tools_per_request limit. Calls
// beyond the cap are rejected individually with a capacity error. A
// non-positive limit means unlimited.
func ClampCalls(calls []Call, limit int) ClampResult {
	if limit <= 0 || len(calls) <= limit {
		return ClampResult{Allowed: calls}
	}

	result := ClampResult{Allowed: calls[:limit]}
	for _, call := range calls[limit:] {
		result.Rejected = append(result.Rejected, ErrorResult(call,
			fmt.Sprintf("tool call rejected: at most %d tool calls are allowed per turn", limit)))
	}
	return result
}
