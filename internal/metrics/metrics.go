package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buzon_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buzon_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Mailbox metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buzon_messages_sent_total",
			Help: "Total messages sent",
		},
		[]string{"to"},
	)

	Polls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buzon_polls_total",
			Help: "Total status polls",
		},
		[]string{"device"},
	)

	Acknowledgements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buzon_acknowledgements_total",
			Help: "Total acknowledgements, by outcome",
		},
		[]string{"device", "outcome"}, // "advanced", "unchanged" or "ignored"
	)

	PersistenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buzon_persistence_failures_total",
			Help: "Snapshot writes that did not complete",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buzon_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buzon_store_latency_seconds",
			Help:    "Snapshot store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"backend", "op"},
	)
)
