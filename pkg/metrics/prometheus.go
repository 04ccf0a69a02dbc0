package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RecordsPersisted prometheus.Counter
	SkippedEntries   prometheus.Counter
	FetchErrors      *prometheus.CounterVec
	RunDuration      prometheus.Histogram
}

// NewMetrics creates new prometheus metrics registered on the default registry
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates new prometheus metrics registered on reg
func NewMetricsWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "The total number of schedule refresh runs",
		}, []string{"trigger", "status"}),
		RecordsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_persisted_total",
			Help:      "The total number of schedule rows inserted",
		}),
		SkippedEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_entries_skipped_total",
			Help:      "The total number of liveboard entries dropped during normalization",
		}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveboard_fetch_errors_total",
			Help:      "The total number of failed liveboard fetches",
		}, []string{"direction", "kind"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_run_duration_seconds",
			Help:      "Time taken by a schedule refresh run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
