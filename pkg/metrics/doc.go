/*
Package metrics provides Prometheus metrics collection and exposition for the notifier.

The metrics package defines and registers all notifier metrics using the Prometheus
client library, providing observability into event throughput, drain behavior,
wake-hint traffic, retention sweeps, and consumer lag. Metrics are exposed via an
HTTP endpoint for scraping by Prometheus servers.

# Architecture

The metrics system follows Prometheus conventions with instrumentation across the
producer facade, the drain workers, and the retention sweeps:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Producer: events recorded, record errors   │          │
	│  │  Wake bus: hints received, publish errors   │          │
	│  │  Drain: passes, errors, duration, batches   │          │
	│  │  Events: processed by kind, skip reasons    │          │
	│  │  Retention: purged rows, purge errors       │          │
	│  │  Lag: cursor distance behind log head       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Automatic collection of Go runtime metrics
  - Thread-safe for concurrent updates

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Lag Collector:
  - Background sampler for consumer cursor lag
  - Pulls per-partition lag from a LagSource
  - Exports one gauge series per partition

Health Checker:
  - Component health registry for /healthz and /ready
  - Database is critical; a broken wake bus only degrades
  - Liveness, readiness, and health HTTP handlers

# Metrics Catalog

Producer Metrics:

stgy_notifier_events_recorded_total{kind}:
  - Type: Counter
  - Description: Events appended to the event log, by kind
  - Labels: kind (follow/like/reply/mention)

stgy_notifier_record_failures_total:
  - Type: Counter
  - Description: Failed event log appends

stgy_notifier_wake_publish_failures_total:
  - Type: Counter
  - Description: Wake hints that could not be published after an append

Drain Metrics:

stgy_notifier_drain_passes_total:
  - Type: Counter
  - Description: Completed drain passes across all partitions

stgy_notifier_drain_errors_total:
  - Type: Counter
  - Description: Drain passes aborted by an error

stgy_notifier_drain_duration_seconds:
  - Type: Histogram
  - Description: Wall time of a single partition drain pass

stgy_notifier_batch_size:
  - Type: Histogram
  - Description: Events fetched per drain pass
  - Buckets: 0, 1, 2, 5, 10, 25, 50, 100, 250

stgy_notifier_events_processed_total{kind}:
  - Type: Counter
  - Description: Events merged into notification rows, by kind
  - Labels: kind (follow/like/reply/mention)

stgy_notifier_events_skipped_total{reason}:
  - Type: Counter
  - Description: Events acknowledged without a merge
  - Labels: reason (self_interaction/missing_post/unknown_type/invalid_payload)

Wake Bus Metrics:

stgy_notifier_wake_hints_total{outcome}:
  - Type: Counter
  - Description: Wake hints received on subscribed channels
  - Labels: outcome (dispatched/ignored)

Retention Metrics:

stgy_notifier_purged_rows_total{table}:
  - Type: Counter
  - Description: Rows deleted by retention sweeps
  - Labels: table (event_log/notifications)

stgy_notifier_purge_failures_total{table}:
  - Type: Counter
  - Description: Retention sweeps that failed
  - Labels: table (event_log/notifications)

Lag Metrics:

stgy_notifier_cursor_lag_events{partition}:
  - Type: Gauge
  - Description: Events between the consumer cursor and the log head
  - Labels: partition

stgy_notifier_workers_running:
  - Type: Gauge
  - Description: Drain workers currently running

# Usage

Updating Counter Metrics:

	import "github.com/stgy/notifier/pkg/metrics"

	metrics.EventsRecorded.WithLabelValues("like").Inc()
	metrics.EventsSkipped.WithLabelValues("self_interaction").Inc()

Recording Histogram Observations:

	// Direct observation
	metrics.BatchSize.Observe(float64(len(events)))

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... drain the partition ...
	timer.ObserveDuration(metrics.DrainDuration)

Running the Lag Collector:

	collector := metrics.NewCollector(eventLog, 15*time.Second)
	collector.Start()
	defer collector.Stop()

Exposing the Endpoint:

	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/healthz", metrics.HealthHandler())
	http.HandleFunc("/ready", metrics.ReadyHandler())
	http.HandleFunc("/live", metrics.LivenessHandler())
	http.ListenAndServe(":9090", nil)

# Integration Points

This package integrates with:

  - pkg/eventlog: Records append counts, failures, and cursor lag
  - pkg/wakebus: Counts received hints and publish failures
  - pkg/notifier: Instruments drain passes and retention sweeps
  - cmd/notifier: Exposes the HTTP endpoint and health handlers
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()

Label Discipline:
  - Labels are small closed sets (kind, reason, outcome, table)
  - Partition label is bounded by EVENT_LOG_PARTITIONS
  - User and post identifiers never appear as labels

# Monitoring

Prometheus Queries (PromQL):

Throughput:
  - Append rate: rate(stgy_notifier_events_recorded_total[1m])
  - Merge rate: rate(stgy_notifier_events_processed_total[1m])
  - Skip ratio: rate(stgy_notifier_events_skipped_total[5m]) / rate(stgy_notifier_events_processed_total[5m])

Drain Health:
  - Error rate: rate(stgy_notifier_drain_errors_total[5m])
  - p95 pass duration: histogram_quantile(0.95, stgy_notifier_drain_duration_seconds_bucket)
  - Max lag: max(stgy_notifier_cursor_lag_events)

Wake Bus:
  - Ignored hints: rate(stgy_notifier_wake_hints_total{outcome="ignored"}[5m])
  - Publish failures: rate(stgy_notifier_wake_publish_failures_total[5m])

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
