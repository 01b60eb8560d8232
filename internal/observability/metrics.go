package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the alert service.
type Metrics struct {
	CyclesTotal    prometheus.Counter
	RegionsSkipped prometheus.Counter
	MatchesTotal   prometheus.Counter
	CycleDuration  prometheus.Histogram

	// Notification metrics.
	NotificationsEnqueued *prometheus.CounterVec // labels: dedupe={true,false}
	DispatchTotal         *prometheus.CounterVec // labels: status={sent,failed,suppressed}
	QueuePending          prometheus.Gauge

	// Forecast provider metrics.
	ProviderRequests *prometheus.CounterVec // labels: outcome={success,error}

	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "cycles_total",
			Help:      "Total evaluation cycles run.",
		}),
		RegionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "regions_skipped_total",
			Help:      "Total regions skipped because no forecast could be fetched.",
		}),
		MatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "matches_total",
			Help:      "Total rule matches produced by evaluation.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_alert",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-evaluate-enqueue cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NotificationsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "notifications_enqueued_total",
			Help:      "Notifications enqueued by duplicate tag.",
		}, []string{"dedupe"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "dispatch_total",
			Help:      "Dispatch attempts by outcome.",
		}, []string{"status"}),
		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_alert",
			Name:      "queue_pending",
			Help:      "Notifications currently awaiting review.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_alert",
			Name:      "provider_requests_total",
			Help:      "Forecast provider fetches by outcome.",
		}, []string{"outcome"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_alert",
			Name:      "scheduler_running",
			Help:      "1 when the cron scheduler is active, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.RegionsSkipped,
		m.MatchesTotal,
		m.CycleDuration,
		m.NotificationsEnqueued,
		m.DispatchTotal,
		m.QueuePending,
		m.ProviderRequests,
		m.SchedulerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_alert", Name: "cycles_total"}),
		RegionsSkipped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_alert", Name: "regions_skipped_total"}),
		MatchesTotal:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_alert", Name: "matches_total"}),
		CycleDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_alert", Name: "cycle_duration_seconds"}),
		NotificationsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_alert", Name: "notifications_enqueued_total"}, []string{"dedupe"}),
		DispatchTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_alert", Name: "dispatch_total"}, []string{"status"}),
		QueuePending:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_alert", Name: "queue_pending"}),
		ProviderRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_alert", Name: "provider_requests_total"}, []string{"outcome"}),
		SchedulerRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_alert", Name: "scheduler_running"}),
	}
}
