package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the privacy engine.
type Metrics struct {
	ConsentChanges    *prometheus.CounterVec
	ExportsBuilt      prometheus.Counter
	DeletionsStarted  prometheus.Counter
	DeletionsResumed  prometheus.Counter
	DeletionsComplete prometheus.Counter
	DeletionSteps     *prometheus.CounterVec
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ConsentChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapphire_consent_changes_total",
			Help: "Total consent decisions recorded, by consent type and granted value",
		}, []string{"consent_type", "granted"}),
		ExportsBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_data_exports_total",
			Help: "Total personal data export bundles built",
		}),
		DeletionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_deletions_started_total",
			Help: "Total account deletion jobs created",
		}),
		DeletionsResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_deletions_resumed_total",
			Help: "Total deletion invocations that resumed an existing job",
		}),
		DeletionsComplete: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapphire_deletions_completed_total",
			Help: "Total account deletion jobs that reached the terminal state",
		}),
		DeletionSteps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapphire_deletion_steps_total",
			Help: "Deletion pipeline steps executed, by step and outcome",
		}, []string{"step", "outcome"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sapphire_request_duration_ms",
			Help:    "Latency of privacy engine HTTP requests in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"path", "method"}),
	}
}
