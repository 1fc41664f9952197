package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultCallTimeout bounds a single tool execution.
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxOutputBytes caps the size of a tool result payload.
	DefaultMaxOutputBytes = 16 * 1024

	// truncationMarker is appended to oversized outputs so the model is
	// told the payload is partial rather than silently given less data.
	truncationMarker = "\n[output truncated]"
)

// Executor validates tool calls against their definitions, dispatches to
// the named handler, enforces per-call timeouts and output size caps, and
// normalizes every failure into an error Result. It never lets a handler
// fault escape: the agent loop only ever sees Results.
type Executor struct {
	registry       *Registry
	callTimeout    time.Duration
	maxOutputBytes int
}

// ExecutorConfig holds executor limits. Zero values select the defaults.
type ExecutorConfig struct {
	CallTimeout    time.Duration
	MaxOutputBytes int
}

// NewExecutor creates an Executor over the given registry.
func NewExecutor(reg *Registry, cfg ExecutorConfig) *Executor {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Executor{
		registry:       reg,
		callTimeout:    cfg.CallTimeout,
		maxOutputBytes: cfg.MaxOutputBytes,
	}
}

// Execute runs one tool call end to end: definition lookup, argument
// decoding and validation, handler dispatch under a per-call timeout,
// and output normalization. All failures come back as error Results.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	start := time.Now()

	def, err := e.registry.Get(call.Name)
	if err != nil {
		return timed(ErrorResult(call, err.Error()), start)
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return timed(ErrorResult(call, fmt.Sprintf("invalid arguments JSON: %v", err)), start)
	}

	if err := ValidateArguments(def, args); err != nil {
		return timed(ErrorResult(call, err.Error()), start)
	}

	output, err := e.invoke(ctx, def, args)
	if err != nil {
		slog.Warn("tool execution failed",
			"tool", call.Name,
			"call_id", call.ID,
			"error", err.Error(),
		)
		return timed(ErrorResult(call, err.Error()), start)
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return timed(ErrorResult(call, fmt.Sprintf("encoding tool output: %v", err)), start)
	}

	result := Result{
		CallID: call.ID,
		Name:   call.Name,
		Output: string(encoded),
	}
	if len(result.Output) > e.maxOutputBytes {
		result.Output = result.Output[:e.maxOutputBytes] + truncationMarker
		result.Truncated = true
	}
	return timed(result, start)
}

// invoke runs the handler under the per-call timeout, recovering panics.
// The handler goroutine is abandoned on timeout; its context is cancelled
// so well-behaved handlers stop their in-flight work.
func (e *Executor) invoke(parent context.Context, def *Definition, args map[string]any) (any, error) {
	ctx, cancel := context.WithTimeout(parent, e.callTimeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("tool handler panicked", "tool", def.Name, "panic", rec)
				done <- outcome{err: fmt.Errorf("internal error: tool %q panicked", def.Name)}
			}
		}()
		v, err := def.Handler(ctx, args)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		return nil, &TimeoutError{Tool: def.Name, Timeout: e.callTimeout.String()}
	}
}

// decodeArguments parses the JSON argument string into a map. An empty
// string decodes to an empty map, matching models that omit arguments
// for zero-parameter tools.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func timed(r Result, start time.Time) Result {
	r.Elapsed = time.Since(start)
	return r
}
