package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tally-ai/tally/pkg/observability"
	"github.com/tally-ai/tally/pkg/provider"
	"github.com/tally-ai/tally/pkg/tools"
)

// Run executes the agent loop for one conversation: it alternates model
// completions and tool executions until a turn yields no tool calls, the
// iteration bound is reached, or the model interface fails unrecoverably.
// The returned Result always carries the transcript and the termination
// reason; the error is non-nil only on the fatal path.
func (e *Engine) Run(ctx context.Context, conversationID, userMessage, providerID string) (*Result, error) {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	caps := e.caps.For(providerID)
	simulate := e.caps.RequiresSimulation(providerID)

	transcript := &Transcript{ConversationID: conversationID}
	req := e.initialRequest(userMessage, simulate, caps)

	lastText := ""
	maxIterations := e.cfg.maxIterations()

	finish := func(text string, reason TerminatedReason) *Result {
		observability.AgentTurns.WithLabelValues(providerID, string(reason)).
			Observe(float64(len(transcript.Turns)))
		return &Result{
			FinalText:        text,
			Transcript:       transcript,
			TerminatedReason: reason,
		}
	}

	for turn := 0; turn < maxIterations; turn++ {
		if ctx.Err() != nil {
			return finish(lastText, TerminatedFatalError), ctx.Err()
		}

		turnCtx := ctx
		var cancelTurn context.CancelFunc
		if e.cfg.TurnTimeout > 0 {
			turnCtx, cancelTurn = context.WithTimeout(ctx, e.cfg.TurnTimeout)
		}

		out, err := e.complete(turnCtx, req, providerID)
		if err != nil {
			if cancelTurn != nil {
				cancelTurn()
			}
			// An expired turn deadline is a forced termination with a
			// partial answer, not a fatal fault. Backend timeouts also
			// surface as context.DeadlineExceeded, so the configured turn
			// context must itself have expired.
			if cancelTurn != nil && turnCtx.Err() != nil && ctx.Err() == nil {
				return finish(lastText, TerminatedMaxIterations), nil
			}
			return finish(lastText, TerminatedFatalError), err
		}

		if out.Text != "" {
			lastText = out.Text
		}

		turnRecord := Turn{
			Prompt:    snapshotMessages(req.Messages),
			RawOutput: out.Text,
		}

		// ParsingCalls: an output with no parseable calls is the normal
		// terminal condition; the text is the final answer.
		calls := provider.ParseCalls(out, simulate)
		turnRecord.Calls = calls
		if len(calls) == 0 {
			transcript.Turns = append(transcript.Turns, turnRecord)
			if cancelTurn != nil {
				cancelTurn()
			}
			return finish(out.Text, TerminatedCompleted), nil
		}

		// ExecutingTools: clamp to the provider's per-turn limit, then
		// run calls with independent failure isolation.
		clamped := tools.ClampCalls(calls, caps.MaxToolsPerRequest)
		results := e.executeTools(turnCtx, clamped.Allowed, caps.ParallelToolCalls)
		results = append(results, clamped.Rejected...)
		turnRecord.Results = results
		transcript.Turns = append(transcript.Turns, turnRecord)

		turnExpired := turnCtx.Err() != nil && ctx.Err() == nil
		if cancelTurn != nil {
			cancelTurn()
		}
		if turnExpired {
			return finish(lastText, TerminatedMaxIterations), nil
		}

		// AppendingResults: feed the results back as the next input.
		e.appendResults(req, out, calls, results, simulate)
	}

	return finish(lastText, TerminatedMaxIterations), nil
}

// initialRequest builds the first completion request: system prompt,
// tool catalog (native payload or simulation instructions), and the
// user's message.
func (e *Engine) initialRequest(userMessage string, simulate bool, caps provider.Capabilities) *provider.Request {
	system := e.cfg.SystemPrompt
	if simulate {
		if system != "" {
			system += "\n\n"
		}
		system += provider.SimulationPrompt(tools.Catalog(e.registry))
	}

	req := &provider.Request{Model: e.cfg.Model}
	if system != "" {
		req.Messages = append(req.Messages, provider.Message{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, provider.Message{Role: "user", Content: userMessage})

	if !simulate {
		req.Tools = provider.NativeTools(e.registry.List())
		if caps.SupportsToolChoice {
			req.ToolChoice = "auto"
		}
	}
	return req
}

// complete performs one model completion with metrics.
func (e *Engine) complete(ctx context.Context, req *provider.Request, providerID string) (*provider.Output, error) {
	start := time.Now()
	out, err := e.client.Complete(ctx, req)
	observability.ProviderLatency.WithLabelValues(providerID).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ProviderRequestsTotal.WithLabelValues(providerID, "error").Inc()
		return nil, err
	}
	observability.ProviderRequestsTotal.WithLabelValues(providerID, "success").Inc()
	return out, nil
}

// executeTools dispatches the turn's calls through the executor,
// concurrently when the provider allows it and strictly in emission
// order otherwise. Each result lands in the slot of its call, so
// completion order never corrupts the call/result pairing.
func (e *Engine) executeTools(ctx context.Context, calls []tools.Call, parallel bool) []tools.Result {
	if len(calls) == 0 {
		return nil
	}

	results := make([]tools.Result, len(calls))

	execOne := func(idx int, call tools.Call) {
		result := e.executor.Execute(ctx, call)

		status := "success"
		if result.IsError {
			status = "error"
			slog.Warn("tool call failed",
				"tool", call.Name,
				"call_id", call.ID,
				"error", result.Output,
			)
		}
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
		observability.ToolDuration.WithLabelValues(call.Name).Observe(result.Elapsed.Seconds())

		results[idx] = result
	}

	if parallel {
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(idx int, c tools.Call) {
				defer wg.Done()
				execOne(idx, c)
			}(i, call)
		}
		wg.Wait()
	} else {
		for i, call := range calls {
			execOne(i, call)
		}
	}

	return results
}

// appendResults extends the conversation with this turn's outcome. For
// native providers, the assistant message carrying tool_calls precedes
// the tool-role result messages, per Chat Completions convention. For
// simulation providers, which have no tool role, the raw assistant text
// is followed by a user message carrying the results as JSON.
func (e *Engine) appendResults(req *provider.Request, out *provider.Output, calls []tools.Call, results []tools.Result, simulate bool) {
	if simulate {
		req.Messages = append(req.Messages,
			provider.Message{Role: "assistant", Content: out.Text},
			provider.Message{Role: "user", Content: renderSimulatedResults(results)},
		)
		return
	}

	assistant := provider.Message{Role: "assistant", Content: out.Text}
	for _, c := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, provider.ToolCallPayload{
			ID:        c.ID,
			Name:      c.Name,
			Arguments: c.Arguments,
		})
	}
	req.Messages = append(req.Messages, assistant)

	for _, r := range results {
		req.Messages = append(req.Messages, provider.Message{
			Role:       "tool",
			Content:    r.Output,
			ToolCallID: r.CallID,
		})
	}
}

// renderSimulatedResults encodes tool results as the JSON block a
// simulation provider is told to expect back.
func renderSimulatedResults(results []tools.Result) string {
	type wireResult struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Output  string `json:"output"`
		IsError bool   `json:"is_error"`
	}

	wire := make([]wireResult, 0, len(results))
	for _, r := range results {
		wire = append(wire, wireResult{
			ID:      r.CallID,
			Name:    r.Name,
			Output:  r.Output,
			IsError: r.IsError,
		})
	}

	data, err := json.Marshal(map[string]any{"tool_results": wire})
	if err != nil {
		// Results are plain strings and bools; this cannot fail outside
		// of a programming error.
		return `{"tool_results":[]}`
	}
	return string(data)
}

func snapshotMessages(messages []provider.Message) []provider.Message {
	out := make([]provider.Message, len(messages))
	copy(out, messages)
	return out
}
