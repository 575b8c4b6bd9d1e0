/*
Package types defines the core data structures used throughout the notifier.

This package contains the fundamental types of the notification pipeline's
domain model: the event payload union written to the event log, the record
and aggregate shapes materialized into notification rows, and the slot/term
addressing scheme. These types are used by all other packages for
persistence, merging, and wire serialization.

# Architecture

The types package is the foundation of the pipeline's data model. It defines:

  - Event payload variants (reply, like, follow, mention)
  - Partition affinity and slot derivation per variant
  - Aggregate record shapes (user-centric, post-centric)
  - The materialized notification row
  - Term (calendar-day) bucketing

All types are designed to be:
  - Serializable (JSON at the database boundary)
  - Immutable once written (events are append-only)
  - Self-documenting (clear field names and comments)
  - Validated (typed enums, Validate helpers)

# Core Types

Event Log:
  - Event: One immutable row of the partitioned log
  - Payload: Discriminated union keyed on Type
  - EventKind: reply, like, follow, mention

Aggregation:
  - UserRecord: Acting user + timestamp (follow slots)
  - PostRecord: Acting user + post + snippet + timestamp
  - UserAggregate: countUsers + capped user records
  - PostAggregate: countUsers (+countPosts) + capped post records
  - Notification: Materialized row keyed (user, slot, term)

# Payload Variants

Each variant carries only its own fields; Type selects the active set:

	reply:   userId, postId, replyToPostId
	like:    userId, postId
	follow:  followerId, followeeId
	mention: userId, postId, mentionedUserId

The variant determines three derived properties:

	Kind     AffinityKey      Slot                 Record shape
	reply    replyToPostId    reply:<parentPost>   PostRecord, keyed (user, post)
	like     postId           like:<postId>        PostRecord, keyed user
	follow   followeeId       follow               UserRecord, keyed user
	mention  mentionedUserId  mention:<postId>     PostRecord, keyed (user, post)

The affinity key is chosen so that every event capable of merging into the
same slot hashes to the same partition; a single worker then applies all
merges for that slot serially and no cross-process row contention occurs.

# Usage

Building a payload on the producer side:

	p := types.Payload{
		Type:          types.EventReply,
		UserID:        "U1",
		PostID:        "P10",
		ReplyToPostID: "P9",
	}
	if err := p.Validate(); err != nil {
		return err
	}

Deriving slot and term on the consumer side:

	slot := ev.Payload.Slot()                  // "reply:P9"
	term := types.Term(ms, loc)                // "2025-06-01"

Merging is performed by pkg/aggregate; this package only defines the shapes:

	agg := types.PostAggregate{
		CountUsers: 1,
		CountPosts: 1,
		Records: []types.PostRecord{
			{UserID: "U1", UserNickname: "alice", PostID: "P10", PostSnippet: "…", TS: 1748772000},
		},
	}

# Serialized Forms

Event payload (event_log.payload column):

	{"type":"reply","userId":"U1","postId":"P10","replyToPostId":"P9"}

User-centric aggregate (notifications.payload for follow slots):

	{"countUsers":2,"records":[{"userId":"U2","userNickname":"bob","ts":1748772060},
	                           {"userId":"U1","userNickname":"alice","ts":1748772000}]}

Post-centric aggregate (reply and mention slots; like omits countPosts):

	{"countUsers":1,"countPosts":2,"records":[…]}

Records are sorted by ts descending; ties preserve insertion order. The
record list is capped, while countUsers/countPosts keep counting distinct
keys ever observed against the retained records.

# Integration Points

This package integrates with:

  - pkg/partition: Hashes Payload.AffinityKey() to a partition
  - pkg/eventlog: Serializes Payload into event rows
  - pkg/aggregate: Merges records into aggregates
  - pkg/notifier: Derives slot/term and writes Notification rows
  - pkg/readstore: Enriches records with nicknames and snippets

# Thread Safety

All types in this package are plain values with no internal locking.
Events are immutable after append. Aggregates are mutated only inside the
owning worker's per-event transaction, so no concurrent mutation occurs.

# See Also

  - pkg/aggregate for the merge rules applied to these shapes
  - pkg/eventlog for persistence of events and cursors
  - pkg/notifier for the drain loop that materializes notifications
*/
package types
