package events

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Counters (cumulative values)
	LogsReceivedTotal  prometheus.Counter
	RouteOutcomesTotal *prometheus.CounterVec
	EventsByKindTotal  *prometheus.CounterVec
	SinkErrorsTotal    *prometheus.CounterVec

	// Histograms (distributions)
	StateReadDuration prometheus.Histogram
	UpsertDuration    prometheus.Histogram
}

// NewMetrics creates the ingestion metrics on reg, or on the default registry when reg is nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	const namespace, subsystem = "show_indexer", "ingest"
	return &Metrics{
		LogsReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "logs_received_total",
			Help:      "Total number of logs received from the subscription",
		}),
		RouteOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "route_outcomes_total",
			Help:      "Total number of routed logs by terminal outcome",
		}, []string{"outcome"}),
		EventsByKindTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Total number of logs from the tracked contract by event kind",
		}, []string{"kind"}),
		SinkErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_errors_total",
			Help:      "Total number of post-commit sink failures",
		}, []string{"sink"}),
		StateReadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state_read_duration_seconds",
			Help:      "getShow call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		UpsertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upsert_duration_seconds",
			Help:      "Three-table upsert duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) logReceived() {
	if m != nil {
		m.LogsReceivedTotal.Inc()
	}
}

func (m *Metrics) outcome(o Outcome) {
	if m != nil {
		m.RouteOutcomesTotal.WithLabelValues(o.String()).Inc()
	}
}

func (m *Metrics) kind(k Kind) {
	if m != nil {
		m.EventsByKindTotal.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) sinkError(sink string) {
	if m != nil {
		m.SinkErrorsTotal.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) observeStateRead(start time.Time) {
	if m != nil {
		m.StateReadDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observeUpsert(start time.Time) {
	if m != nil {
		m.UpsertDuration.Observe(time.Since(start).Seconds())
	}
}
