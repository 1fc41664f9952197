package provider

import "testing"

func TestTableForKnownProvider(t *testing.T) {
	table := BuiltinTable()

	caps := table.For("openai")
	if !caps.NativeFunctionCalling {
		t.Error("openai NativeFunctionCalling = false, want true")
	}
	if !caps.ParallelToolCalls {
		t.Error("openai ParallelToolCalls = false, want true")
	}
	if caps.MaxToolsPerRequest != 16 {
		t.Errorf("openai MaxToolsPerRequest = %d, want 16", caps.MaxToolsPerRequest)
	}
}

func TestTableForUnknownProviderFallsBack(t *testing.T) {
	table := BuiltinTable()

	caps := table.For("garage-llm")
	want := DefaultCapabilities()
	if caps != want {
		t.Errorf("For(unknown) = %+v, want default %+v", caps, want)
	}
	if caps.NativeFunctionCalling {
		t.Error("default NativeFunctionCalling = true, want conservative false")
	}
}

func TestRequiresSimulation(t *testing.T) {
	table := BuiltinTable()

	tests := []struct {
		provider string
		want     bool
	}{
		{"openai", false},
		{"anthropic", false},
		{"ollama", true},
		{"llamacpp", true},
		{"never-heard-of-it", true},
	}
	for _, tt := range tests {
		if got := table.RequiresSimulation(tt.provider); got != tt.want {
			t.Errorf("RequiresSimulation(%q) = %v, want %v", tt.provider, got, tt.want)
		}
	}
}
