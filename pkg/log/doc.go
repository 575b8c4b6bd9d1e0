/*
Package log provides structured logging for the notifier using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

The logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("notifier")                │          │
	│  │  - WithWorker(3)                            │          │
	│  │  - WithPartition(12)                        │          │
	│  │  - WithConsumer("notification")             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "notifier",                 │          │
	│  │    "worker": 3,                             │          │
	│  │    "time": "2024-11-14T10:30:00Z",         │          │
	│  │    "message": "worker started"              │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF worker started component=notifier │       │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all notifier packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithWorker: Add drain worker index
  - WithPartition: Add event log partition
  - WithConsumer: Add cursor consumer name

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "drain pass complete: partition=5 processed=42"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "singleton lock acquired, starting workers"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "redis unavailable, continuing on tick only"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "drain pass failed: connection refused"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to open database: %v"

# Usage

Initializing the Logger:

	import "github.com/stgy/notifier/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/notifier.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("Notifier started")
	log.Debug("Checking partition ownership")
	log.Warn("Wake hint for unowned partition")
	log.Error("Failed to connect to Postgres")
	log.Fatal("Cannot start without database") // Exits process

Structured Logging:

	log.Logger.Info().
		Int("partition", 5).
		Int("processed", 42).
		Msg("Drain pass complete")

	log.Logger.Error().
		Err(err).
		Int("partition", 5).
		Msg("Drain pass failed")

Component Loggers:

	// Create component-specific logger
	busLog := log.WithComponent("wakebus")
	busLog.Info().Msg("Subscribed to wake channel")
	busLog.Debug().Int("partition", 12).Msg("Wake hint received")

	// Multiple context fields
	drainLog := log.WithComponent("notifier").
		With().Int("worker", 3).
		Int("partition", 12).Logger()
	drainLog.Info().Msg("Draining partition")
	drainLog.Error().Err(err).Msg("Drain aborted")

Context Logger Helpers:

	// Worker-specific logs
	workerLog := log.WithWorker(3)
	workerLog.Info().Msg("Worker started")

	// Partition-specific logs
	partLog := log.WithPartition(12)
	partLog.Info().Msg("Cursor advanced")

	// Consumer-specific logs
	consLog := log.WithConsumer("notification")
	consLog.Info().Msg("Cursor rows ensured")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/stgy/notifier/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("Notifier starting")

		// Component-specific logging
		drainLog := log.WithComponent("notifier")
		drainLog.Info().
			Int("worker", 0).
			Int("partitions", 16).
			Msg("Worker claimed partitions")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "wakebus").
			Msg("Failed to subscribe to Redis")

		log.Info("Notifier stopped")
	}

# Integration Points

This package integrates with:

  - cmd/notifier: Initializes logging from config (level, format)
  - pkg/notifier: Logs worker lifecycle and drain passes
  - pkg/eventlog: Logs cursor and purge operations
  - pkg/wakebus: Logs subscription state and reconnects
  - pkg/singleton: Logs advisory lock acquisition
  - pkg/metrics: Logs collector lifecycle

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"notifier","worker":0,"time":"2024-11-14T10:30:00Z","message":"Worker started"}
	{"level":"debug","component":"notifier","worker":0,"partition":5,"processed":42,"time":"2024-11-14T10:30:01Z","message":"Drain pass complete"}
	{"level":"error","component":"wakebus","error":"connection refused","time":"2024-11-14T10:30:02Z","message":"Subscribe failed, retrying"}

Console Format (Development):

	10:30:00 INF Worker started component=notifier worker=0
	10:30:01 DBG Drain pass complete component=notifier worker=0 partition=5 processed=42
	10:30:02 ERR Subscribe failed, retrying component=wakebus error="connection refused"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Provides stack trace information
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Memory Allocation:
  - Zero allocation for disabled levels
  - ~100 bytes per log line (JSON)
  - ~200 bytes per log line (console)
  - Amortized by buffer pooling

Log Level Impact:
  - Debug: High volume, use in development only
  - Info: Moderate volume, suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production (one line per drain pass)
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing component or partition fields
  - Cause: Using global Logger instead of context logger
  - Solution: Use WithComponent() or create child loggers

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact database URLs and Redis passwords
  - Avoid logging raw event payloads at info level (user content)
  - Review logs before sharing externally

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data
  - Validate/sanitize before logging if necessary

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces
  - Include context (worker, partition, consumer)

Don't:
  - Log sensitive data (secrets, passwords)
  - Use Debug level in production
  - Log per-event in tight drain loops (log per pass)
  - Concatenate strings (use .Str, .Int)
  - Block on log writes (use buffered output)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
