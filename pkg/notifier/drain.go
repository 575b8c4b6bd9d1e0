package notifier

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stgy/notifier/pkg/aggregate"
	"github.com/stgy/notifier/pkg/idgen"
	"github.com/stgy/notifier/pkg/metrics"
	"github.com/stgy/notifier/pkg/types"
)

const (
	selectSlotSQL = `
SELECT payload
FROM notifications
WHERE user_id = $1 AND slot = $2 AND term = $3
FOR UPDATE`

	insertSlotSQL = `
INSERT INTO notifications (user_id, slot, term, is_read, payload, updated_at)
VALUES ($1, $2, $3, false, $4, $5)`

	updateSlotSQL = `
UPDATE notifications
SET is_read = false, payload = $4, updated_at = $5
WHERE user_id = $1 AND slot = $2 AND term = $3`

	sweepTimeoutSQL = `SET LOCAL statement_timeout = '10s'`

	sweepNotificationsSQL = `
DELETE FROM notifications
WHERE updated_at < $1`
)

// drainPass fetches one batch past the cursor and merges it event by event.
// It returns how many events committed; on error the cursor stays at the
// last committed event and the caller aborts the drain.
func (n *Notifier) drainPass(ctx context.Context, part int, logger zerolog.Logger) (int, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DrainDuration)

	cursor, err := n.eventLog.LoadCursor(ctx, Consumer, part)
	if err != nil {
		return 0, err
	}

	events, err := n.eventLog.FetchBatch(ctx, part, cursor, n.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	metrics.BatchSize.Observe(float64(len(events)))
	if len(events) == 0 {
		return 0, nil
	}

	for i, ev := range events {
		if err := n.processEvent(ctx, ev, logger); err != nil {
			return i, err
		}
	}

	metrics.DrainPasses.Inc()
	logger.Debug().Int("partition", part).Int("events", len(events)).Msg("drained batch")
	return len(events), nil
}

// processEvent merges one event into its slot, or acknowledges it without a
// merge when it cannot produce a notification. Either way the cursor
// advances in the same transaction, so the event is never seen again.
func (n *Notifier) processEvent(ctx context.Context, ev types.Event, logger zerolog.Logger) error {
	switch ev.Payload.Type {
	case types.EventFollow, types.EventLike, types.EventReply, types.EventMention:
	default:
		metrics.EventsSkipped.WithLabelValues("unknown_type").Inc()
		logger.Warn().
			Uint64("event", ev.ID).
			Str("type", string(ev.Payload.Type)).
			Msg("skipping event of unknown type")
		return n.acknowledge(ctx, ev)
	}

	if err := ev.Payload.Validate(); err != nil {
		metrics.EventsSkipped.WithLabelValues("invalid_payload").Inc()
		logger.Warn().
			Uint64("event", ev.ID).
			Str("type", string(ev.Payload.Type)).
			Err(err).
			Msg("skipping invalid event")
		return n.acknowledge(ctx, ev)
	}

	recipient, ok, err := n.resolveRecipient(ctx, ev.Payload)
	if err != nil {
		return err
	}
	if !ok {
		metrics.EventsSkipped.WithLabelValues("missing_post").Inc()
		logger.Debug().Uint64("event", ev.ID).Msg("skipping event for deleted post")
		return n.acknowledge(ctx, ev)
	}
	if recipient == ev.Payload.Actor() {
		metrics.EventsSkipped.WithLabelValues("self_interaction").Inc()
		return n.acknowledge(ctx, ev)
	}

	ms := idgen.TimestampOf(ev.ID)
	term := types.Term(ms, n.cfg.Timezone)

	if err := n.merge(ctx, ev, recipient, term, ms); err != nil {
		return err
	}

	metrics.EventsProcessed.WithLabelValues(string(ev.Payload.Type)).Inc()
	return nil
}

// resolveRecipient maps an event to the user whose aggregate it feeds.
// ok=false means the event references a post that no longer exists.
func (n *Notifier) resolveRecipient(ctx context.Context, p types.Payload) (string, bool, error) {
	switch p.Type {
	case types.EventFollow:
		return p.FolloweeID, true, nil
	case types.EventLike:
		return n.reads.PostOwner(ctx, p.PostID)
	case types.EventReply:
		return n.reads.PostOwner(ctx, p.ReplyToPostID)
	case types.EventMention:
		// the mentioned user is the recipient, but the mentioning post must
		// still exist to be previewed
		if _, ok, err := n.reads.PostOwner(ctx, p.PostID); err != nil || !ok {
			return "", false, err
		}
		return p.MentionedUserID, true, nil
	}
	return "", false, nil
}

// acknowledge advances the cursor past an event that produced no merge.
func (n *Notifier) acknowledge(ctx context.Context, ev types.Event) error {
	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := n.eventLog.SaveCursor(ctx, tx, Consumer, ev.Partition, ev.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cursor: %w", err)
	}
	return nil
}

// merge locks the slot row, folds the event into its aggregate, writes the
// row back unread, and advances the cursor, all in one transaction.
func (n *Notifier) merge(ctx context.Context, ev types.Event, recipient, term string, ms int64) error {
	slot := ev.Payload.Slot()

	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	found := true
	err = tx.QueryRowContext(ctx, selectSlotSQL, recipient, slot, term).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}

	var payload []byte
	if ev.Payload.Type == types.EventFollow {
		payload, err = n.mergeUserSlot(ctx, ev, raw, found, ms)
	} else {
		payload, err = n.mergePostSlot(ctx, ev, raw, found, ms)
	}
	if err != nil {
		return err
	}

	when := time.UnixMilli(ms).UTC()
	if found {
		_, err = tx.ExecContext(ctx, updateSlotSQL, recipient, slot, term, payload, when)
	} else {
		_, err = tx.ExecContext(ctx, insertSlotSQL, recipient, slot, term, payload, when)
	}
	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}

	if err := n.eventLog.SaveCursor(ctx, tx, Consumer, ev.Partition, ev.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	return nil
}

// mergeUserSlot folds a follow event into a user-centric aggregate. The
// nickname lookup only happens when the actor is not already cached in the
// slot's records.
func (n *Notifier) mergeUserSlot(ctx context.Context, ev types.Event, raw []byte, found bool, ms int64) ([]byte, error) {
	var agg types.UserAggregate
	if found {
		if err := json.Unmarshal(raw, &agg); err != nil {
			return nil, fmt.Errorf("failed to parse slot payload: %w", err)
		}
	}

	actor := ev.Payload.Actor()
	rec := types.UserRecord{UserID: actor, TS: ms / 1000}

	if nick, ok := aggregate.UserNickname(agg.Records, actor); ok {
		rec.UserNickname = nick
	} else {
		nick, _, err := n.reads.Nickname(ctx, actor)
		if err != nil {
			return nil, err
		}
		rec.UserNickname = nick
	}

	merged := aggregate.MergeUser(agg, rec, n.cfg.RecordCap)

	body, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode slot payload: %w", err)
	}
	return body, nil
}

// mergePostSlot folds a like, reply, or mention event into a post-centric
// aggregate, looking up nickname and snippet only for users and posts the
// slot has not cached.
func (n *Notifier) mergePostSlot(ctx context.Context, ev types.Event, raw []byte, found bool, ms int64) ([]byte, error) {
	var agg types.PostAggregate
	if found {
		if err := json.Unmarshal(raw, &agg); err != nil {
			return nil, fmt.Errorf("failed to parse slot payload: %w", err)
		}
	}

	actor := ev.Payload.Actor()
	rec := types.PostRecord{
		UserID: actor,
		PostID: ev.Payload.PostID,
		TS:     ms / 1000,
	}

	if nick, ok := aggregate.PostUserNickname(agg.Records, actor); ok {
		rec.UserNickname = nick
	} else {
		nick, _, err := n.reads.Nickname(ctx, actor)
		if err != nil {
			return nil, err
		}
		rec.UserNickname = nick
	}

	if snip, ok := aggregate.PostSnippet(agg.Records, rec.PostID); ok {
		rec.PostSnippet = snip
	} else {
		snip, _, err := n.reads.PostSnippet(ctx, rec.PostID)
		if err != nil {
			return nil, err
		}
		rec.PostSnippet = snip
	}

	merged := aggregate.MergePost(agg, rec, ev.Payload.Type.KeyedByPost(), n.cfg.RecordCap)

	body, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode slot payload: %w", err)
	}
	return body, nil
}

// noteProcessed accumulates merged events and runs a notifications retention
// sweep once enough have gone through.
func (n *Notifier) noteProcessed(ctx context.Context, count int, logger zerolog.Logger) {
	n.mu.Lock()
	n.sinceSweep += count
	due := n.sinceSweep >= n.cfg.SweepThreshold
	if due {
		n.sinceSweep = 0
	}
	n.mu.Unlock()

	if due {
		n.sweepNotifications(ctx, logger)
	}
}

// sweepNotifications deletes rows whose last merge is past retention. The
// sweep runs in its own transaction under a statement timeout and its
// failures never reach the drain loop.
func (n *Notifier) sweepNotifications(ctx context.Context, logger zerolog.Logger) {
	horizon := time.Now().Add(-n.cfg.NotificationRetention)

	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.PurgeFailures.WithLabelValues("notifications").Inc()
		logger.Warn().Err(err).Msg("notification sweep failed to start")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sweepTimeoutSQL); err != nil {
		metrics.PurgeFailures.WithLabelValues("notifications").Inc()
		logger.Warn().Err(err).Msg("notification sweep failed to set timeout")
		return
	}

	res, err := tx.ExecContext(ctx, sweepNotificationsSQL, horizon)
	if err != nil {
		metrics.PurgeFailures.WithLabelValues("notifications").Inc()
		logger.Warn().Err(err).Msg("notification sweep failed")
		return
	}

	purged, err := res.RowsAffected()
	if err != nil {
		purged = 0
	}

	if err := tx.Commit(); err != nil {
		metrics.PurgeFailures.WithLabelValues("notifications").Inc()
		logger.Warn().Err(err).Msg("notification sweep failed to commit")
		return
	}

	if purged > 0 {
		metrics.PurgedRows.WithLabelValues("notifications").Add(float64(purged))
		logger.Info().Int64("rows", purged).Msg("purged expired notifications")
	}
}
