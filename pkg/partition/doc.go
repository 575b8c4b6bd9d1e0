/*
Package partition maps events to log partitions and partitions to workers.

The event log is split into a fixed number of partitions chosen at
deployment time. This package owns both halves of the routing: which
partition an event is appended to (a hash of the payload's recipient
affinity key) and which in-process worker drains a given partition (a
fixed modulo assignment).

# Architecture

	                      Hash(affinityKey, P)
	  producer event  ──────────────────────────►  partition p ∈ [0, P)
	                                                    │
	                      OwnerOf(p, N) = p mod N       │
	  drain worker w  ◄─────────────────────────────────┘

	- P (partitions) is fixed per deployment; changing it reshuffles
	  routing and must not happen with undrained events in the log
	- N (workers) may vary per run; ownership follows p mod N

# Hashing

Hash folds the hexadecimal digits of the key, skipping every other rune:

	v = 0
	for each hex digit d in key: v = (v*16 + d) mod P

This equals interpreting the kept digits as one base-16 number mod P, so
keys of any length reduce without overflow. Keys without hex digits land
on partition 0.

The affinity key per event kind is chosen so all events that can merge
into the same notification slot share a key, and therefore a partition:

	follow   → followeeId
	like     → postId
	reply    → replyToPostId
	mention  → mentionedUserId

With a single process holding the singleton lock and one worker per
partition, every slot is written by exactly one goroutine and merges need
no cross-process coordination beyond row locks.

# Usage

Producer side:

	p := partition.ForPayload(payload, cfg.EventLogPartitions)

Consumer side:

	owned := partition.Owned(w, cfg.NotificationWorkers, cfg.EventLogPartitions)
	for _, p := range owned {
		// drain p
	}

# Integration Points

This package integrates with:

  - pkg/eventlog: Routes appends to a partition
  - pkg/wakebus: Worker index in channel names comes from OwnerOf
  - pkg/notifier: Workers enumerate their fixed partition set with Owned

# See Also

  - pkg/types for the per-kind affinity key definitions
  - pkg/notifier for the single-writer drain discipline
*/
package partition
