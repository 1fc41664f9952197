package provider

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tally-ai/tally/pkg/tools"
)

// simulatedCall is the JSON shape a simulation provider is instructed to
// emit for each call: {"id": ..., "name": ..., "arguments": {...}}.
type simulatedCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// simulatedEnvelope is the top-level block: {"tool_calls": [...]}.
type simulatedEnvelope struct {
	ToolCalls []simulatedCall `json:"tool_calls"`
}

// ParseCalls extracts the tool calls requested in a model output. For
// native-calling providers the output carries them structurally; for
// simulation providers the free text is scanned for an embedded JSON
// block. An empty result is the normal "no tools requested" terminal
// condition, never an error.
func ParseCalls(out *Output, simulate bool) []tools.Call {
	if !simulate {
		calls := make([]tools.Call, 0, len(out.ToolCalls))
		for _, tc := range out.ToolCalls {
			calls = append(calls, tools.Call{
				ID:        ensureCallID(tc.ID),
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		return calls
	}
	return ExtractSimulatedCalls(out.Text)
}

// ExtractSimulatedCalls recovers tool calls from free text. It first
// attempts a strict parse of the whole (trimmed) text, then falls back to
// scanning for balanced-bracket JSON substrings. When several candidate
// blocks exist, the first one that parses into the expected shape wins.
// Returns nil when no parseable block is found.
func ExtractSimulatedCalls(text string) []tools.Call {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if calls := tryParseBlock(trimmed); calls != nil {
		return calls
	}

	for _, candidate := range balancedBlocks(trimmed) {
		if calls := tryParseBlock(candidate); calls != nil {
			return calls
		}
	}
	return nil
}

// tryParseBlock parses one candidate JSON block. Both the envelope form
// {"tool_calls":[...]} and a bare array [...] of calls are accepted.
func tryParseBlock(block string) []tools.Call {
	var sims []simulatedCall

	switch block[0] {
	case '{':
		var env simulatedEnvelope
		if err := json.Unmarshal([]byte(block), &env); err != nil {
			return nil
		}
		sims = env.ToolCalls
	case '[':
		if err := json.Unmarshal([]byte(block), &sims); err != nil {
			return nil
		}
	default:
		return nil
	}

	if len(sims) == 0 {
		return nil
	}

	calls := make([]tools.Call, 0, len(sims))
	for _, sc := range sims {
		if sc.Name == "" {
			// A block without tool names is not a call request.
			return nil
		}
		args := "{}"
		if len(sc.Arguments) > 0 {
			args = string(sc.Arguments)
		}
		calls = append(calls, tools.Call{
			ID:        ensureCallID(sc.ID),
			Name:      sc.Name,
			Arguments: args,
		})
	}
	return calls
}

// balancedBlocks yields every balanced {...} or [...] substring of text,
// in order of appearance. String literals and escapes are honored so
// braces inside JSON strings do not unbalance the scan.
func balancedBlocks(text string) []string {
	var blocks []string

	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '{' && open != '[' {
			continue
		}

		if end := matchBracket(text, i); end > i {
			blocks = append(blocks, text[i:end+1])
			// Skip past this block; nested blocks parse as part of it.
			i = end
		}
	}
	return blocks
}

// matchBracket returns the index of the bracket closing the one at start,
// or -1 if the text ends unbalanced.
func matchBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ensureCallID returns the model-supplied id, or synthesizes one when the
// model omitted it. Results are matched back to calls by this id.
func ensureCallID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
