// Package observability provides Prometheus metrics for the tally agent.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference
// latencies, ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool", "status"},
	)

	// ToolDuration records tool execution duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	// ProviderRequestsTotal counts completion requests by provider and outcome.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_provider_requests_total",
			Help: "Model completion requests",
		},
		[]string{"provider", "status"},
	)

	// ProviderLatency records completion latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_provider_latency_seconds",
			Help:    "Model completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider"},
	)

	// AgentTurns records how many turns each conversation took, by
	// termination reason.
	AgentTurns = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_agent_turns",
			Help:    "Turns per agent conversation",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		},
		[]string{"provider", "reason"},
	)

	// QueryValidationFailures counts requests rejected by the query
	// whitelist, by entity.
	QueryValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_query_validation_failures_total",
			Help: "Whitelist rejections",
		},
		[]string{"entity"},
	)
)

func init() {
	prometheus.MustRegister(
		ToolExecutionsTotal,
		ToolDuration,
		ProviderRequestsTotal,
		ProviderLatency,
		AgentTurns,
		QueryValidationFailures,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
