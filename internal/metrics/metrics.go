// Package metrics defines Prometheus metrics for the QMS server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qms_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qms_errors_total",
			Help: "Total error responses by kind",
		},
		[]string{"kind"},
	)

	SignaturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qms_signatures_total",
			Help: "Signatures captured by method",
		},
		[]string{"method"},
	)

	AuditAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qms_audit_appends_total",
			Help: "Audit trail entries appended by action",
		},
		[]string{"action"},
	)

	AuditChainValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qms_audit_chain_valid",
			Help: "1 if the last audit hash-chain verification passed, 0 otherwise",
		},
	)

	GovernanceArtifacts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qms_governance_artifacts",
			Help: "Latest governance artifacts by verification status",
		},
		[]string{"status"},
	)

	AccessQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qms_access_queue_depth",
			Help: "Current access-event queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qms_websocket_connections",
			Help: "Active audit stream connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		SignaturesTotal, AuditAppendsTotal, AuditChainValid,
		GovernanceArtifacts, AccessQueueDepth, WSConnections,
	)
}
