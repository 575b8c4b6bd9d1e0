/*
Package config loads and validates notifier configuration.

Configuration layers, lowest to highest precedence:

 1. Built-in defaults (Default)
 2. Optional YAML file (path argument or NOTIFIER_CONFIG)
 3. Environment variables (plus a development .env file via godotenv)

Everything is read once at startup; the daemon never re-reads
configuration while running. Partition count, worker count, record cap,
and the id worker id shape on-disk data and wake routing, so changing
them requires a restart by design.

# Keys

	DATABASE_URL                  Postgres DSN (events, cursors, notifications, read side)
	REDIS_URL                     Redis DSN for the wake bus
	EVENT_LOG_PARTITIONS          P, fixed per deployment; changing it reshuffles routing
	EVENT_LOG_RETENTION_DAYS      age cutoff for event purges
	NOTIFICATION_WORKERS          N drain workers; partition p belongs to worker p mod N
	NOTIFICATION_BATCH_SIZE       events fetched per drain pass
	NOTIFICATION_PAYLOAD_RECORDS  record cap per notification slot
	NOTIFICATION_RETENTION_DAYS   age cutoff for notification row sweeps
	DRAIN_TICK_INTERVAL           periodic re-drain interval (wake-loss safety net)
	SYSTEM_TIMEZONE               calendar-day bucketing zone for terms
	ID_ISSUE_WORKER_ID            id issuer worker field, 0-1023, unique per deployment
	METRICS_ADDR                  /metrics and /healthz listen address
	LOG_LEVEL, LOG_FORMAT         logging

# Usage

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}
	cfg.LogConfig(log.Logger)

	loc, err := cfg.Location()

# Integration Points

This package integrates with:

  - cmd/notifier: Loads configuration before anything else starts
  - pkg/idgen: Validates the worker id range
  - pkg/notifier: Consumes the partition/worker/batch/cap settings

# See Also

  - pkg/partition for what the partition and worker counts control
*/
package config
