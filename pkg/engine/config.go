package engine

import "time"

// Config holds agent loop settings.
type Config struct {
	// Model is the backend model identifier sent with every request.
	Model string

	// SystemPrompt is prepended to every conversation. For simulation
	// providers the rendered tool catalog is appended to it.
	SystemPrompt string

	// MaxIterations bounds the number of turns before forced
	// termination. Zero or negative selects the default of 10.
	MaxIterations int

	// TurnTimeout bounds one whole turn: the completion call plus tool
	// execution. Zero means no per-turn deadline; per-call timeouts
	// still apply in the executor.
	TurnTimeout time.Duration
}

// maxIterations returns the effective iteration cap, defaulting to 10.
func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return 10
	}
	return c.MaxIterations
}
