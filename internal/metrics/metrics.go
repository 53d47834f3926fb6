// Package metrics holds the Prometheus collectors shared by the catalog components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

var (
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tfecatalog_page_fetches_total",
		Help: "Resource page fetches by outcome",
	}, []string{"outcome"})

	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tfecatalog_workspace_searches_total",
		Help: "Workspace searches by outcome",
	}, []string{"outcome"})

	RejectedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tfecatalog_rejected_page_requests_total",
		Help: "Page requests rejected before dispatch because they were out of range",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tfecatalog_sessions_active",
		Help: "Number of live browsing sessions",
	})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tfecatalog_upstream_request_seconds",
		Help:    "Latency of TFE API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tfecatalog_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})
)

var EventPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tfecatalog_event_publishes_total",
	Help: "View events published to the event bus by outcome",
}, []string{"outcome"})

// RecordPublish is a pubsub OnPublish hook.
func RecordPublish(_ string, err error, _ time.Duration) {
	if err != nil {
		EventPublishes.WithLabelValues(OutcomeError).Inc()
		return
	}
	EventPublishes.WithLabelValues(OutcomeOK).Inc()
}
