/*
Package notifier drains event log partitions into materialized notification
aggregates.

A fixed pool of workers owns the partition space: partition p belongs to
worker p mod Workers, so no coordination is needed between workers and every
event for one recipient is applied by exactly one goroutine. Workers drain on
three triggers: once at startup, on wake hints, and on a periodic tick that
covers lost hints.

# Architecture

	┌──────────────────────── NOTIFIER ────────────────────────┐
	│                                                           │
	│  Hint(p) ──┐                       ticker ──┐             │
	│            ▼                                ▼             │
	│  ┌──────────────────┐            ┌──────────────────┐     │
	│  │ claim p          │            │ drain owned      │     │
	│  │ route to worker  │            │ partitions       │     │
	│  │   p mod W        │            └────────┬─────────┘     │
	│  └────────┬─────────┘                     │               │
	│           ▼                               ▼               │
	│  ┌─────────────────────────────────────────────────┐      │
	│  │ worker w: drainPartition(p)                      │      │
	│  │                                                  │      │
	│  │   pass: LoadCursor → FetchBatch → per event:     │      │
	│  │     resolve recipient                            │      │
	│  │     BEGIN                                        │      │
	│  │       SELECT slot FOR UPDATE                     │      │
	│  │       merge aggregate, write unread              │      │
	│  │       SaveCursor                                 │      │
	│  │     COMMIT                                       │      │
	│  │                                                  │      │
	│  │   repeat until a pass comes back empty           │      │
	│  └─────────────────────────────────────────────────┘      │
	└───────────────────────────────────────────────────────────┘

# Partition States

Each partition is Idle, Draining, or Draining-with-follow-up:

	          Hint / tick
	  Idle ───────────────▶ Draining ◀─┐
	    ▲                      │       │ hint while draining
	    │   pass empty,        │       │ sets a pending flag
	    │   no pending         ├───────┘
	    └──────────────────────┘

A hint for a Draining partition never queues a second drain; it sets a
pending flag that release converts into one more drain cycle. That keeps a
burst of appends to one hot partition at one extra pass, and guarantees the
events the hint announced are seen even if the running pass already fetched
its batch.

# Delivery Semantics

The cursor advances in the same transaction as the slot write, so one event
is applied at most once per delivery and redelivery after a crash re-merges
events the aggregate already absorbed. Aggregate merges ignore records that
are not strictly newer, which makes the replay a no-op apart from re-marking
the row unread.

Events that cannot produce a notification still advance the cursor, in a
cursor-only transaction: self-interactions, events whose post has been
deleted, payloads that fail validation, and payload kinds this version does
not know. A transient database error instead aborts the drain with the
cursor parked on the last committed event; the partition is released and the
next hint or tick retries.

# Retention

Two sweeps ride along with draining. After each non-empty pass the drained
partition's expired events are purged. After SweepThreshold merged events a
global sweep deletes notification rows whose last update is past
NotificationRetention; it runs in its own transaction under a statement
timeout, and its failures are counted but never abort a drain.

# Usage

	n, err := notifier.New(db, eventLog, reads, notifier.Config{
		Workers:               4,
		Partitions:            16,
		BatchSize:             100,
		RecordCap:             30,
		DrainTick:             30 * time.Second,
		NotificationRetention: 120 * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	// wire wake hints, then block until shutdown
	go sub.Run(ctx, n.Hint)
	return n.Run(ctx)

# Integration Points

This package integrates with:

  - pkg/eventlog: Cursors, batches, and event purge
  - pkg/readstore: Post owner, nickname, and snippet lookups
  - pkg/aggregate: Pure merge rules for slot payloads
  - pkg/types: Payload union, aggregates, term bucketing
  - pkg/partition: Worker ownership of partitions
  - pkg/wakebus: Run Subscriber with Hint as the dispatch
  - pkg/metrics: Drain, skip, and sweep instrumentation

# See Also

  - pkg/eventlog for the log this package consumes
  - cmd/notifier for process wiring and the singleton gate
*/
package notifier
