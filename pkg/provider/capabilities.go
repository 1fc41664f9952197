package provider

// Capabilities declares a provider's tool-calling features. The agent
// loop consults these to pick a parsing strategy and to bound per-turn
// execution.
type Capabilities struct {
	// NativeFunctionCalling indicates the provider emits tool calls as
	// structured data. When false, calls are simulated via prompt text
	// and recovered by parsing the model's free-text output.
	NativeFunctionCalling bool

	// ParallelToolCalls indicates calls within one turn may execute
	// concurrently.
	ParallelToolCalls bool

	// StreamingToolCalls indicates the provider can stream tool call
	// arguments incrementally.
	StreamingToolCalls bool

	// MaxToolsPerRequest caps the number of tool calls honored per turn.
	MaxToolsPerRequest int

	// SupportsToolChoice indicates the provider accepts a tool_choice
	// directive.
	SupportsToolChoice bool
}

// DefaultCapabilities is the conservative fallback for providers absent
// from the table: no native calling, sequential execution, a small tool
// cap. An unknown provider must stay usable, just degraded.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		NativeFunctionCalling: false,
		ParallelToolCalls:     false,
		StreamingToolCalls:    false,
		MaxToolsPerRequest:    2,
		SupportsToolChoice:    false,
	}
}

// Table maps provider identifiers to their capabilities. It is loaded
// once at process start and read-only afterwards.
type Table map[string]Capabilities

// BuiltinTable returns the static capability table for known providers.
func BuiltinTable() Table {
	return Table{
		"openai": {
			NativeFunctionCalling: true,
			ParallelToolCalls:     true,
			StreamingToolCalls:    true,
			MaxToolsPerRequest:    16,
			SupportsToolChoice:    true,
		},
		"azure-openai": {
			NativeFunctionCalling: true,
			ParallelToolCalls:     true,
			StreamingToolCalls:    true,
			MaxToolsPerRequest:    16,
			SupportsToolChoice:    true,
		},
		"anthropic": {
			NativeFunctionCalling: true,
			ParallelToolCalls:     true,
			StreamingToolCalls:    false,
			MaxToolsPerRequest:    8,
			SupportsToolChoice:    true,
		},
		"mistral": {
			NativeFunctionCalling: true,
			ParallelToolCalls:     false,
			StreamingToolCalls:    false,
			MaxToolsPerRequest:    8,
			SupportsToolChoice:    true,
		},
		"ollama": {
			NativeFunctionCalling: false,
			ParallelToolCalls:     false,
			StreamingToolCalls:    false,
			MaxToolsPerRequest:    4,
			SupportsToolChoice:    false,
		},
		"llamacpp": {
			NativeFunctionCalling: false,
			ParallelToolCalls:     false,
			StreamingToolCalls:    false,
			MaxToolsPerRequest:    2,
			SupportsToolChoice:    false,
		},
	}
}

// For returns the capabilities for the given provider identifier, or the
// conservative default when the provider is unknown.
func (t Table) For(providerID string) Capabilities {
	if caps, ok := t[providerID]; ok {
		return caps
	}
	return DefaultCapabilities()
}

// RequiresSimulation reports whether tool calling for the given provider
// must be driven by prompt text and output parsing.
func (t Table) RequiresSimulation(providerID string) bool {
	return !t.For(providerID).NativeFunctionCalling
}
