package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roundtable_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Turn metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_turns_total",
			Help: "Total number of turns processed",
		},
		[]string{"route", "status"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roundtable_turn_duration_seconds",
			Help:    "End-to-end turn duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"route"},
	)

	ExpertsUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_experts_unavailable_total",
			Help: "Experts isolated after a per-expert failure",
		},
	)

	SoftFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_soft_failures_total",
			Help: "Non-fatal degradations (invalid mindmap, empty follow-ups, router fallback)",
		},
		[]string{"kind"},
	)

	// LLM metrics
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_llm_calls_total",
			Help: "LLM gateway calls by operation",
		},
		[]string{"operation", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roundtable_llm_call_duration_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Sandbox metrics
	SandboxExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_sandbox_executions_total",
			Help: "Sandboxed snippet executions",
		},
		[]string{"status"},
	)

	SandboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roundtable_sandbox_pending_requests",
			Help: "Sandbox requests waiting for their response",
		},
	)
)
