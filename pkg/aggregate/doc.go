/*
Package aggregate implements the pure merge rules for notification slots.

A notification row stores an aggregate: a distinct-key count (or two) plus
a capped list of the most recent acting-user records. This package merges
one incoming record into an existing aggregate and returns the result. It
is deliberately free of I/O and SQL; the notifier handles row locking,
enrichment lookups, and persistence around these functions.

# Merge Rules

Given an aggregate and an incoming record:

 1. Find an existing record with the same key. User-centric aggregates and
    like slots key on userId; reply and mention slots key on
    (userId, postId).
 2. If found and the stored ts is greater or equal, return the aggregate
    unchanged. Redelivered and out-of-order events become no-ops, which
    keeps replays bitwise idempotent.
 3. If found and the incoming ts is strictly newer, drop the stored record
    and append the incoming one (a refresh: same key, newer activity).
 4. If absent, append the incoming record.
 5. Stable-sort by ts descending. Equal timestamps keep their insertion
    order, so same-second activity lists oldest-merged first.
 6. Truncate to the record cap.
 7. Counts: CountUsers increments when the incoming userId was absent from
    the pre-merge records; CountPosts (keyed-by-post aggregates only)
    increments likewise for postId.

Counts are monotone and approximate "distinct keys ever seen" by testing
membership against the capped record list. A key evicted by the cap counts
again if it returns later; the drift is accepted in exchange for keeping
the aggregate self-contained in one row.

	merge(U2@t1) → countUsers=1 [U2]
	merge(U3@t2) → countUsers=2 [U3,U2]
	merge(U2@t3) → countUsers=2 [U2,U3]     refresh, no recount
	merge(U2@t3) → unchanged                 replay, no-op

# Usage

	var agg types.PostAggregate
	if raw != nil {
		if err := json.Unmarshal(raw, &agg); err != nil {
			return err
		}
	}

	rec := types.PostRecord{UserID: actor, UserNickname: nick, PostID: postID, PostSnippet: preview, TS: ms / 1000}
	agg = aggregate.MergePost(agg, rec, kind.KeyedByPost(), cfg.PayloadRecords)

Cached-field reuse before a merge (skip lookups for known keys):

	if nick, ok := aggregate.PostUserNickname(agg.Records, actor); ok {
		rec.UserNickname = nick
	} else {
		rec.UserNickname = lookupNickname(actor)
	}

# Integration Points

This package integrates with:

  - pkg/types: Record and aggregate shapes
  - pkg/notifier: Calls merges inside the per-event transaction
  - pkg/readstore: Supplies nicknames/snippets for keys not yet cached

# See Also

  - pkg/notifier for the transaction and locking discipline around merges
  - pkg/types for serialized aggregate forms
*/
package aggregate
