package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for tool call metrics.
const (
	outcomeOK            = "ok"
	outcomeUpstreamError = "upstream_error"
	outcomeLookupError   = "lookup_error"
	outcomeInternalError = "internal_error"
)

var (
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openapi_mcp_tool_calls_total",
			Help: "Total tool calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	toolCallDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openapi_mcp_tool_call_duration_ms",
			Help:    "Tool call latency in milliseconds, including the upstream request.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"operation"},
	)
	catalogTools = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "openapi_mcp_catalog_tools",
			Help: "Number of tools listed by the most recently built adapter.",
		},
	)
)

func init() {
	prometheus.MustRegister(toolCallsTotal, toolCallDurationMs, catalogTools)
}

func observeToolCall(operation, outcome string, latency time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	toolCallsTotal.WithLabelValues(operation, outcome).Inc()
	if outcome != outcomeLookupError {
		toolCallDurationMs.WithLabelValues(operation).Observe(float64(latency.Milliseconds()))
	}
}
