package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codelens_parsing_seconds",
		Help:    "Time spent parsing and extracting a source file.",
		Buckets: prometheus.DefBuckets,
	})

	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codelens_indexed_files",
		Help: "Number of source files currently in the index.",
	})

	IndexedTypes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codelens_indexed_types",
		Help: "Number of type declarations currently in the index.",
	})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codelens_parse_failures_total",
		Help: "Total number of files skipped because they failed to parse.",
	})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codelens_operation_seconds",
		Help:    "Time spent executing an engine operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelens_operation_errors_total",
		Help: "Total number of engine operations that returned an error, by kind.",
	}, []string{"operation", "kind"})

	EngineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codelens_engine_queue_depth",
		Help: "Number of jobs waiting for the engine worker.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codelens_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	BridgePendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codelens_bridge_pending_requests",
		Help: "Requests sent to the engine that have not been answered yet.",
	})

	BridgeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelens_bridge_requests_total",
		Help: "Total number of bridge requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	BridgeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codelens_bridge_request_seconds",
		Help:    "Round-trip latency of bridge requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	BridgeStateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelens_bridge_state_transitions_total",
		Help: "Total number of bridge state transitions by target state.",
	}, []string{"state"})

	BridgeDroppedLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codelens_bridge_dropped_lines_total",
		Help: "Inbound engine lines dropped as malformed or uncorrelated.",
	})
)
