package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollectorMetrics holds all Prometheus metrics for the collector service.
type CollectorMetrics struct {
	SignalsTotal           *prometheus.CounterVec
	EventsTotal            *prometheus.CounterVec
	SensitiveFieldsDropped prometheus.Counter
	AppendFailures         prometheus.Counter
	WALActive              prometheus.Gauge
	KeyCacheHits           prometheus.Counter
	KeyCacheMisses         prometheus.Counter
}

// NewCollectorMetrics initializes and registers the Prometheus metrics.
func NewCollectorMetrics() *CollectorMetrics {
	return &CollectorMetrics{
		SignalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "collect",
			Name:      "signals_total",
			Help:      "Raw browser signals received, by type and status.",
		}, []string{"type", "status"}), // status: applied, dropped, error_parse
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "tracker",
			Name:      "events_total",
			Help:      "Events appended to the data layer, by event name.",
		}, []string{"event"}),
		SensitiveFieldsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "tracker",
			Name:      "sensitive_fields_dropped_total",
			Help:      "Form fields excluded by the sensitive-name denylist.",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "tracker",
			Name:      "append_failures_total",
			Help:      "Envelope appends that failed against the data layer.",
		}),
		WALActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon",
			Subsystem: "datalayer",
			Name:      "wal_active_gauge",
			Help:      "Whether the WAL failover is currently active (1 active, 0 inactive).",
		}),
		KeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "auth",
			Name:      "tracking_key_cache_hits_total",
			Help:      "Tracking key validations served from cache.",
		}),
		KeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "auth",
			Name:      "tracking_key_cache_misses_total",
			Help:      "Tracking key validations that fell through to the database.",
		}),
	}
}
