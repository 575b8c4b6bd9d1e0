/*
Package idgen issues the 64-bit, time-ordered event ids used by the event log.

Every event appended to the log is stamped with an id from this package. The
id doubles as the log's ordering key and as the event's timestamp: consumers
sort and resume by id, and retention derives age cutoffs from the embedded
milliseconds without a separate timestamp column.

# Architecture

Ids pack three fields into 63 usable bits:

	 63 62                        22 21        12 11         0
	┌──┬────────────────────────────┬────────────┬────────────┐
	│ 0│ milliseconds since epoch   │ worker id  │  sequence  │
	│  │         (41 bits)          │ (10 bits)  │ (12 bits)  │
	└──┴────────────────────────────┴────────────┴────────────┘

	- Timestamp: wall-clock milliseconds since 2023-01-01T00:00:00Z
	- Worker id: distinguishes producing processes (0-1023)
	- Sequence: orders ids issued within one millisecond (0-4095)

The top bit stays clear, so ids fit PostgreSQL's signed INT8 and survive
round trips through decimal strings.

# Clock Handling

Issue reads a hybrid clock: the wall clock sampled once at construction,
advanced by Go's monotonic clock. If the wall clock jumps backward (NTP
step, VM migration), the issuer clamps to the last issued millisecond and
burns sequence numbers until real time catches up. Consequences:

  - Ids from one process are strictly increasing, always
  - Embedded timestamps never decrease, but may briefly run ahead of
    the wall clock after a backward step
  - A burst of more than 4096 ids inside one clamped millisecond returns
    ErrSequenceExhausted; callers retry after a short sleep

# Usage

Issuing ids:

	iss, err := idgen.NewIssuer(cfg.IDIssueWorkerID)
	if err != nil {
		return err
	}

	id, err := iss.Issue()
	if errors.Is(err, idgen.ErrSequenceExhausted) {
		time.Sleep(time.Millisecond)
		id, err = iss.Issue()
	}

Recovering event time:

	ms := idgen.TimestampOf(ev.ID)        // epoch milliseconds
	ts := ms / 1000                       // aggregate records store seconds

Retention cutoffs:

	cutoff := idgen.LowerBoundForTime(time.Now().AddDate(0, 0, -retentionDays))
	// DELETE FROM event_log WHERE partition_id = $1 AND event_id < cutoff

# Ordering Guarantees

Within one process, ids are strictly monotonic: the mutex serializes
issuance, the clamp keeps the millisecond field non-decreasing, and the
sequence field breaks ties inside a millisecond. Across processes there is
no total order; distinct worker ids only guarantee uniqueness. The pipeline
needs nothing stronger, because each log partition is written under the
producing process's ordering and consumed by exactly one worker.

# Integration Points

This package integrates with:

  - pkg/eventlog: Stamps appended events, derives purge cutoffs
  - pkg/notifier: Recovers event time for term bucketing and record ts
  - cmd/notifier: Configures the worker id per deployment

# See Also

  - pkg/eventlog for how ids key the log
  - pkg/types for the record shapes carrying the derived ts
*/
package idgen
