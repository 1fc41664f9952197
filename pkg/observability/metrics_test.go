package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	// Counters and histograms only appear after the first observation,
	// so seed every metric before gathering.
	ToolExecutionsTotal.WithLabelValues("test_tool", "success").Inc()
	ToolDuration.WithLabelValues("test_tool").Observe(0.1)
	ProviderRequestsTotal.WithLabelValues("openai", "success").Inc()
	ProviderLatency.WithLabelValues("openai").Observe(0.1)
	AgentTurns.WithLabelValues("openai", "completed").Observe(2)
	QueryValidationFailures.WithLabelValues("employee").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"tally_tool_executions_total":           false,
		"tally_tool_duration_seconds":           false,
		"tally_provider_requests_total":         false,
		"tally_provider_latency_seconds":        false,
		"tally_agent_turns":                     false,
		"tally_query_validation_failures_total": false,
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestCounterIncrement verifies counting through the vec API.
func TestCounterIncrement(t *testing.T) {
	before := counterValue(t, ToolExecutionsTotal, "counted_tool", "error")
	ToolExecutionsTotal.WithLabelValues("counted_tool", "error").Inc()
	after := counterValue(t, ToolExecutionsTotal, "counted_tool", "error")

	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	ToolExecutionsTotal.WithLabelValues("handler_tool", "success").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("GET /metrics returned an empty body")
	}
}

// counterValue reads the current value of a labeled counter.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
