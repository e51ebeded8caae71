// Package metrics exposes the validation engine's Prometheus vectors:
// decisions by outcome, scanner fan-out latency/failures, and LLM audit
// latency/failures. It is deliberately a thinner registry than a full
// gateway's — this process has no per-route or per-gateway cardinality
// to track, only per-validator and per-decision.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var (
	// DecisionsTotal counts every orchestrator decision by direction
	// (request/response) and outcome (allow/redact/block).
	DecisionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_guardrail_decisions_total",
			Help: "Validation decisions by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	// ScannerCallsTotal counts remote scanner calls by scanner name and
	// result (ok, invalid, failure).
	ScannerCallsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_guardrail_scanner_calls_total",
			Help: "Remote scanner calls by scanner name and result",
		},
		[]string{"scanner", "result"},
	)

	// ScannerLatency tracks the per-scanner round trip under the shared
	// 5-second fan-out deadline.
	ScannerLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_guardrail_scanner_latency_ms",
			Help:    "Remote scanner call latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"scanner"},
	)

	// MetadataAuditLatency tracks per-tool LLM audit latency during
	// tools/list response handling.
	MetadataAuditLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_guardrail_metadata_audit_latency_ms",
			Help:    "Per-tool LLM audit latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"result"},
	)

	// RateLimitHitsTotal counts rate-limit blocks by tool name.
	RateLimitHitsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_guardrail_rate_limit_blocks_total",
			Help: "Requests blocked by the rate-limit validator",
		},
		[]string{"tool"},
	)

	// ThreatReportsTotal counts threat-backend POST outcomes.
	ThreatReportsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_guardrail_threat_reports_total",
			Help: "Threat backend report attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Initialize registers the process collector and makes registry the
// default so an ambient /metrics handler can scrape it.
func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}
