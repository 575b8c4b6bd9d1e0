package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Producer metrics
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_events_recorded_total",
			Help: "Total number of events appended to the log by kind",
		},
		[]string{"kind"},
	)

	RecordFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stgy_notifier_record_failures_total",
			Help: "Total number of event appends that failed",
		},
	)

	WakePublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stgy_notifier_wake_publish_failures_total",
			Help: "Total number of wake hints that could not be published",
		},
	)

	// Consumer metrics
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_events_processed_total",
			Help: "Total number of events merged into notification slots by kind",
		},
		[]string{"kind"},
	)

	EventsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_events_skipped_total",
			Help: "Total number of events advanced past without a merge by reason",
		},
		[]string{"reason"},
	)

	DrainPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stgy_notifier_drain_passes_total",
			Help: "Total number of drain passes executed",
		},
	)

	DrainErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stgy_notifier_drain_errors_total",
			Help: "Total number of drain passes aborted by a transient error",
		},
	)

	DrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stgy_notifier_drain_duration_seconds",
			Help:    "Duration of one drain pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stgy_notifier_batch_size",
			Help:    "Number of events fetched per drain pass",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	WakeHints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_wake_hints_total",
			Help: "Total number of wake hints received by outcome",
		},
		[]string{"outcome"},
	)

	PurgedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_purged_rows_total",
			Help: "Total number of rows removed by retention purges per table",
		},
		[]string{"table"},
	)

	PurgeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stgy_notifier_purge_failures_total",
			Help: "Total number of retention purges that failed per table",
		},
		[]string{"table"},
	)

	CursorLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stgy_notifier_cursor_lag_events",
			Help: "Events between the saved cursor and the log head per partition",
		},
		[]string{"partition"},
	)

	WorkersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stgy_notifier_workers_running",
			Help: "Number of drain workers currently running",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(EventsRecorded)
	prometheus.MustRegister(RecordFailures)
	prometheus.MustRegister(WakePublishFailures)
	prometheus.MustRegister(EventsProcessed)
	prometheus.MustRegister(EventsSkipped)
	prometheus.MustRegister(DrainPasses)
	prometheus.MustRegister(DrainErrors)
	prometheus.MustRegister(DrainDuration)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(WakeHints)
	prometheus.MustRegister(PurgedRows)
	prometheus.MustRegister(PurgeFailures)
	prometheus.MustRegister(CursorLag)
	prometheus.MustRegister(WorkersRunning)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
