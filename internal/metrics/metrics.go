// Package metrics defines Prometheus metrics for isomatch.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isomatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isomatch_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isomatch_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	MatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isomatch_match_runs_total",
			Help: "Submitted match runs by outcome",
		},
		[]string{"outcome"},
	)

	MatchRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isomatch_match_records_total",
			Help: "Match records emitted across all runs",
		},
	)

	InvalidReferencesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isomatch_invalid_references_total",
			Help: "Match records dropped or rejected because a node reference did not resolve",
		},
	)

	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isomatch_node_resolve_duration_seconds",
			Help:    "Node reference resolution latency by backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	NodesRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isomatch_nodes_registered_total",
			Help: "Node registry rows inserted or updated",
		},
	)

	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isomatch_stream_connections",
			Help: "Active run event stream connections",
		},
	)

	StreamFramesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isomatch_stream_frames_dropped_total",
			Help: "Run event frames dropped because the publish queue was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		MatchRunsTotal, MatchRecordsTotal, InvalidReferencesTotal,
		ResolveDuration, NodesRegisteredTotal, StreamConnections, StreamFramesDropped,
	)
}
