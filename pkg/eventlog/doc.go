/*
Package eventlog implements the partitioned, append-only event log that feeds
notification fan-out.

Producers append interaction payloads (follow, like, reply, mention) to one of
P partitions; consumers drain each partition in id order past a durable
per-partition cursor. Event ids are time-ordered 64-bit integers issued by
pkg/idgen, so "newer" and "greater id" mean the same thing within a partition.

# Architecture

	┌───────────────────── EVENT LOG ──────────────────────────┐
	│                                                            │
	│  Producer                                                  │
	│  ┌─────────────────────────────────────────────┐          │
	│  │ Record{Follow,Like,Reply,Mention}            │          │
	│  │  1. validate payload                         │          │
	│  │  2. partition = fold(affinity key) mod P     │          │
	│  │  3. id = issuer.Issue()                      │          │
	│  │  4. INSERT (partition_id, event_id, payload) │          │
	│  │  5. wake hint (best effort)                  │          │
	│  └──────────────────┬──────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼──────────────────────────┐          │
	│  │ event_log                                    │          │
	│  │   partition_id  INT                          │          │
	│  │   event_id      BIGINT   (time-ordered)      │          │
	│  │   payload       JSONB                        │          │
	│  │   PRIMARY KEY (partition_id, event_id)       │          │
	│  └──────────────────┬──────────────────────────┘          │
	│                     │                                      │
	│  Consumer           │                                      │
	│  ┌──────────────────▼──────────────────────────┐          │
	│  │ LoadCursor → FetchBatch → merge → SaveCursor │          │
	│  │                                              │          │
	│  │ event_cursors                                │          │
	│  │   consumer       TEXT                        │          │
	│  │   partition_id   INT                         │          │
	│  │   last_event_id  BIGINT                      │          │
	│  │   PRIMARY KEY (consumer, partition_id)       │          │
	│  └─────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

# Core Components

Log:
  - Producer facade and consumer primitives over one *sql.DB
  - Carries the issuer, partition count, and retention window
  - Optional WakePublisher for post-append hints

Execer:
  - Subset of *sql.DB and *sql.Tx (ExecContext)
  - Lets producers append inside their own transaction
  - Lets consumers save cursors inside the merge transaction

LagReporter:
  - Binds one consumer name to Log.Lag
  - Plugs into the metrics collector as a LagSource

# Delivery Semantics

Appends and cursor saves are plain SQL statements; atomicity comes from the
transaction the caller supplies. The consumer contract is at-least-once: a
crash between merge commit and the next fetch replays events at or before the
cursor, so merges must tolerate replay. SaveCursor in the same transaction as
the merge keeps the replay window to the current event only.

Wake hints are delivered after the append returns and may race the producer's
enclosing transaction. A hint for data not yet visible drains nothing and the
periodic re-drain covers lost hints, so hint delivery is never load-bearing.

# Id Handling

Event ids are unsigned 64-bit values that can exceed float64's exact integer
range. Every id crosses the SQL boundary as a decimal string with an explicit
::bigint cast, and comes back as text, so no driver or intermediate layer can
round it through a float.

# Usage

Appending from an API handler, inside the handler's transaction:

	id, err := eventLog.RecordLike(ctx, tx, likerID, postID)
	if err != nil {
		return err
	}

Draining one partition:

	cursor, err := eventLog.LoadCursor(ctx, "notifications", part)
	if err != nil {
		return err
	}
	events, err := eventLog.FetchBatch(ctx, part, cursor, batchSize)
	if err != nil {
		return err
	}
	for _, ev := range events {
		// merge ev, then in the same tx:
		// eventLog.SaveCursor(ctx, tx, "notifications", part, ev.ID)
	}

Retention:

	purged, err := eventLog.PurgeOld(ctx, part)

# Integration Points

This package integrates with:

  - pkg/idgen: Issues time-ordered event ids
  - pkg/partition: Routes payloads by affinity key
  - pkg/types: Payload union and Event envelope
  - pkg/wakebus: WakePublisher implementation
  - pkg/notifier: Drains partitions and saves cursors
  - pkg/metrics: Append/purge counters and cursor lag

# See Also

  - pkg/notifier for the drain loop that consumes this log
  - cmd/notifier-migrate for the schema
*/
package eventlog
