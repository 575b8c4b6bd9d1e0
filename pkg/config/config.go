package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/stgy/notifier/pkg/idgen"
)

// Config holds all notifier configuration.
// Precedence: environment variables > YAML file > built-in defaults.
// The env tags carry no defaults on purpose; Default() supplies them so
// a YAML layer can sit between defaults and the environment.
type Config struct {
	// Stores
	DatabaseURL string `env:"DATABASE_URL" yaml:"database_url"`
	RedisURL    string `env:"REDIS_URL" yaml:"redis_url"`

	// Event log
	EventLogPartitions    int `env:"EVENT_LOG_PARTITIONS" yaml:"event_log_partitions"`
	EventLogRetentionDays int `env:"EVENT_LOG_RETENTION_DAYS" yaml:"event_log_retention_days"`

	// Consumer
	NotificationWorkers       int           `env:"NOTIFICATION_WORKERS" yaml:"notification_workers"`
	NotificationBatchSize     int           `env:"NOTIFICATION_BATCH_SIZE" yaml:"notification_batch_size"`
	PayloadRecords            int           `env:"NOTIFICATION_PAYLOAD_RECORDS" yaml:"notification_payload_records"`
	NotificationRetentionDays int           `env:"NOTIFICATION_RETENTION_DAYS" yaml:"notification_retention_days"`
	DrainTickInterval         time.Duration `env:"DRAIN_TICK_INTERVAL" yaml:"drain_tick_interval"`

	// Identity
	SystemTimezone  string `env:"SYSTEM_TIMEZONE" yaml:"system_timezone"`
	IDIssueWorkerID int    `env:"ID_ISSUE_WORKER_ID" yaml:"id_issue_worker_id"`

	// Observability
	MetricsAddr string `env:"METRICS_ADDR" yaml:"metrics_addr"`
	LogLevel    string `env:"LOG_LEVEL" yaml:"log_level"`
	LogFormat   string `env:"LOG_FORMAT" yaml:"log_format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DatabaseURL:               "postgres://localhost:5432/stgy?sslmode=disable",
		RedisURL:                  "redis://localhost:6379/0",
		EventLogPartitions:        16,
		EventLogRetentionDays:     30,
		NotificationWorkers:       4,
		NotificationBatchSize:     100,
		PayloadRecords:            8,
		NotificationRetentionDays: 120,
		DrainTickInterval:         time.Minute,
		SystemTimezone:            "UTC",
		IDIssueWorkerID:           0,
		MetricsAddr:               ":9090",
		LogLevel:                  "info",
		LogFormat:                 "json",
	}
}

// Load reads configuration from an optional YAML file, a development .env
// file, and the environment. An empty path falls back to the
// NOTIFIER_CONFIG environment variable; no file at all is fine.
func Load(path string) (*Config, error) {
	// .env is a development convenience; production sets real env vars
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("NOTIFIER_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.EventLogPartitions < 1 {
		return fmt.Errorf("EVENT_LOG_PARTITIONS must be >= 1, got %d", c.EventLogPartitions)
	}
	if c.NotificationWorkers < 1 {
		return fmt.Errorf("NOTIFICATION_WORKERS must be >= 1, got %d", c.NotificationWorkers)
	}
	if c.NotificationWorkers > c.EventLogPartitions {
		return fmt.Errorf("NOTIFICATION_WORKERS (%d) must not exceed EVENT_LOG_PARTITIONS (%d)",
			c.NotificationWorkers, c.EventLogPartitions)
	}
	if c.NotificationBatchSize < 1 {
		return fmt.Errorf("NOTIFICATION_BATCH_SIZE must be >= 1, got %d", c.NotificationBatchSize)
	}
	if c.PayloadRecords < 1 {
		return fmt.Errorf("NOTIFICATION_PAYLOAD_RECORDS must be >= 1, got %d", c.PayloadRecords)
	}
	if c.EventLogRetentionDays < 1 {
		return fmt.Errorf("EVENT_LOG_RETENTION_DAYS must be >= 1, got %d", c.EventLogRetentionDays)
	}
	if c.NotificationRetentionDays < 1 {
		return fmt.Errorf("NOTIFICATION_RETENTION_DAYS must be >= 1, got %d", c.NotificationRetentionDays)
	}
	if c.DrainTickInterval <= 0 {
		return fmt.Errorf("DRAIN_TICK_INTERVAL must be positive, got %s", c.DrainTickInterval)
	}
	if c.IDIssueWorkerID < 0 || c.IDIssueWorkerID > idgen.MaxWorkerID {
		return fmt.Errorf("ID_ISSUE_WORKER_ID must be 0-%d, got %d", idgen.MaxWorkerID, c.IDIssueWorkerID)
	}
	if _, err := time.LoadLocation(c.SystemTimezone); err != nil {
		return fmt.Errorf("SYSTEM_TIMEZONE %q is not a valid zone: %w", c.SystemTimezone, err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console (got: %s)", c.LogFormat)
	}
	return nil
}

// Location resolves the configured term-bucketing timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SystemTimezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.SystemTimezone, err)
	}
	return loc, nil
}

// LogConfig logs the effective configuration with secrets elided
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Int("partitions", c.EventLogPartitions).
		Int("workers", c.NotificationWorkers).
		Int("batch_size", c.NotificationBatchSize).
		Int("payload_records", c.PayloadRecords).
		Int("event_retention_days", c.EventLogRetentionDays).
		Int("notification_retention_days", c.NotificationRetentionDays).
		Dur("drain_tick", c.DrainTickInterval).
		Str("timezone", c.SystemTimezone).
		Int("id_worker", c.IDIssueWorkerID).
		Str("metrics_addr", c.MetricsAddr).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Configuration loaded")
}
