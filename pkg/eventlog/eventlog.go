package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/stgy/notifier/pkg/idgen"
	"github.com/stgy/notifier/pkg/log"
	"github.com/stgy/notifier/pkg/metrics"
	"github.com/stgy/notifier/pkg/partition"
	"github.com/stgy/notifier/pkg/types"
)

// SQL statements kept as constants for clarity and reuse.
// Event ids travel as decimal strings with explicit bigint casts so no
// driver layer ever coerces them through a float.
const (
	insertEventSQL = `
INSERT INTO event_log (partition_id, event_id, payload)
VALUES ($1, $2::bigint, $3)`

	ensureCursorSQL = `
INSERT INTO event_cursors (consumer, partition_id, last_event_id)
VALUES ($1, $2, 0)
ON CONFLICT (consumer, partition_id) DO NOTHING`

	selectCursorSQL = `
SELECT last_event_id::text
FROM event_cursors
WHERE consumer = $1 AND partition_id = $2`

	updateCursorSQL = `
UPDATE event_cursors
SET last_event_id = $3::bigint, updated_at = now()
WHERE consumer = $1 AND partition_id = $2`

	fetchBatchSQL = `
SELECT event_id::text, payload
FROM event_log
WHERE partition_id = $1 AND event_id > $2::bigint
ORDER BY event_id ASC
LIMIT $3`

	purgeTimeoutSQL = `SET LOCAL statement_timeout = '10s'`

	purgeEventsSQL = `
DELETE FROM event_log
WHERE partition_id = $1 AND event_id < $2::bigint`

	cursorLagSQL = `
SELECT c.partition_id, count(e.event_id)
FROM event_cursors c
LEFT JOIN event_log e
  ON e.partition_id = c.partition_id AND e.event_id > c.last_event_id
WHERE c.consumer = $1
GROUP BY c.partition_id`
)

// Execer is the subset of *sql.DB and *sql.Tx used to append rows, so
// producers can record events inside their own transactions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// WakePublisher delivers a best-effort hint that a partition has new events.
type WakePublisher interface {
	Wake(ctx context.Context, partition int) error
}

// Log is the partitioned, append-only event log. The producer side appends
// interaction payloads; the consumer side reads batches past a durable
// per-partition cursor.
type Log struct {
	db         *sql.DB
	issuer     *idgen.Issuer
	wake       WakePublisher
	partitions int
	retention  time.Duration
	logger     zerolog.Logger
}

// New creates an event log over db. wake may be nil, in which case appends
// rely on the consumer's periodic re-drain instead of wake hints.
func New(db *sql.DB, issuer *idgen.Issuer, partitions int, retention time.Duration, wake WakePublisher) (*Log, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("issuer is required")
	}
	if partitions <= 0 {
		return nil, fmt.Errorf("partitions must be positive, got %d", partitions)
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %v", retention)
	}

	return &Log{
		db:         db,
		issuer:     issuer,
		wake:       wake,
		partitions: partitions,
		retention:  retention,
		logger:     log.WithComponent("eventlog"),
	}, nil
}

// Partitions returns the partition count the log was created with.
func (l *Log) Partitions() int {
	return l.partitions
}

// RecordFollow appends a follow event.
func (l *Log) RecordFollow(ctx context.Context, ex Execer, followerID, followeeID string) (uint64, error) {
	return l.Record(ctx, ex, types.Payload{
		Type:       types.EventFollow,
		FollowerID: followerID,
		FolloweeID: followeeID,
	})
}

// RecordLike appends a like event. postID is the liked post.
func (l *Log) RecordLike(ctx context.Context, ex Execer, userID, postID string) (uint64, error) {
	return l.Record(ctx, ex, types.Payload{
		Type:   types.EventLike,
		UserID: userID,
		PostID: postID,
	})
}

// RecordReply appends a reply event. postID is the reply itself,
// replyToPostID the post being replied to.
func (l *Log) RecordReply(ctx context.Context, ex Execer, userID, postID, replyToPostID string) (uint64, error) {
	return l.Record(ctx, ex, types.Payload{
		Type:          types.EventReply,
		UserID:        userID,
		PostID:        postID,
		ReplyToPostID: replyToPostID,
	})
}

// RecordMention appends a mention event. postID is the mentioning post.
func (l *Log) RecordMention(ctx context.Context, ex Execer, userID, postID, mentionedUserID string) (uint64, error) {
	return l.Record(ctx, ex, types.Payload{
		Type:            types.EventMention,
		UserID:          userID,
		PostID:          postID,
		MentionedUserID: mentionedUserID,
	})
}

// Record validates the payload, assigns an id and partition, and appends the
// event through ex. After a successful append it publishes a wake hint; hint
// delivery is best effort and never fails the append.
func (l *Log) Record(ctx context.Context, ex Execer, p types.Payload) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("invalid payload: %w", err)
	}

	part := partition.ForPayload(p, l.partitions)

	id, err := l.nextID()
	if err != nil {
		metrics.RecordFailures.Inc()
		return 0, fmt.Errorf("failed to issue event id: %w", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		metrics.RecordFailures.Inc()
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if _, err := ex.ExecContext(ctx, insertEventSQL, part, formatID(id), body); err != nil {
		metrics.RecordFailures.Inc()
		return 0, fmt.Errorf("failed to append event: %w", err)
	}

	metrics.EventsRecorded.WithLabelValues(string(p.Type)).Inc()
	l.hint(ctx, part)

	return id, nil
}

// nextID issues a log-ordered id, backing off within the current millisecond
// when the issuer's sequence space is exhausted.
func (l *Log) nextID() (uint64, error) {
	var id uint64

	op := func() error {
		var err error
		id, err = l.issuer.Issue()
		if err != nil {
			if errors.Is(err, idgen.ErrSequenceExhausted) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Millisecond
	policy.MaxInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = time.Second

	if err := backoff.Retry(op, policy); err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Log) hint(ctx context.Context, part int) {
	if l.wake == nil {
		return
	}
	if err := l.wake.Wake(ctx, part); err != nil {
		metrics.WakePublishFailures.Inc()
		l.logger.Warn().Err(err).Int("partition", part).Msg("failed to publish wake hint")
	}
}

// LoadCursor returns the consumer's cursor for a partition, creating it at
// zero if it does not exist yet. Creation never moves an existing cursor.
func (l *Log) LoadCursor(ctx context.Context, consumer string, part int) (uint64, error) {
	if _, err := l.db.ExecContext(ctx, ensureCursorSQL, consumer, part); err != nil {
		return 0, fmt.Errorf("failed to ensure cursor row: %w", err)
	}

	var raw string
	if err := l.db.QueryRowContext(ctx, selectCursorSQL, consumer, part).Scan(&raw); err != nil {
		return 0, fmt.Errorf("failed to load cursor: %w", err)
	}

	return parseID(raw)
}

// SaveCursor advances the cursor through ex, typically the same transaction
// that merged the event, so the acknowledgment commits atomically with the
// effect. The cursor row must already exist.
func (l *Log) SaveCursor(ctx context.Context, ex Execer, consumer string, part int, id uint64) error {
	res, err := ex.ExecContext(ctx, updateCursorSQL, consumer, part, formatID(id))
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("cursor %s/%d does not exist", consumer, part)
	}
	return nil
}

// FetchBatch returns up to limit events from one partition with ids strictly
// greater than after, in ascending id order.
func (l *Log) FetchBatch(ctx context.Context, part int, after uint64, limit int) ([]types.Event, error) {
	rows, err := l.db.QueryContext(ctx, fetchBatchSQL, part, formatID(after), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []types.Event
	for rows.Next() {
		var rawID string
		var body []byte
		if err := rows.Scan(&rawID, &body); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		id, err := parseID(rawID)
		if err != nil {
			return nil, err
		}

		var p types.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", id, err)
		}

		events = append(events, types.Event{ID: id, Partition: part, Payload: p})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// PurgeOld deletes events in one partition older than the retention window.
// The delete runs in its own transaction under a 10s statement timeout so a
// bloated partition degrades the sweep, not the drain.
func (l *Log) PurgeOld(ctx context.Context, part int) (int64, error) {
	bound := idgen.LowerBoundForTime(time.Now().Add(-l.retention))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, purgeTimeoutSQL); err != nil {
		return 0, fmt.Errorf("failed to set statement timeout: %w", err)
	}

	res, err := tx.ExecContext(ctx, purgeEventsSQL, part, formatID(bound))
	if err != nil {
		metrics.PurgeFailures.WithLabelValues("event_log").Inc()
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		metrics.PurgeFailures.WithLabelValues("event_log").Inc()
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	if purged > 0 {
		metrics.PurgedRows.WithLabelValues("event_log").Add(float64(purged))
		l.logger.Info().Int("partition", part).Int64("rows", purged).Msg("purged expired events")
	}
	return purged, nil
}

// Lag counts, for each partition with a cursor row, the events the consumer
// has not yet acknowledged. Partitions without a cursor row report zero.
func (l *Log) Lag(ctx context.Context, consumer string) (map[int]int64, error) {
	lags := make(map[int]int64, l.partitions)
	for p := 0; p < l.partitions; p++ {
		lags[p] = 0
	}

	rows, err := l.db.QueryContext(ctx, cursorLagSQL, consumer)
	if err != nil {
		return nil, fmt.Errorf("failed to query cursor lag: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var part int
		var lag int64
		if err := rows.Scan(&part, &lag); err != nil {
			return nil, fmt.Errorf("failed to scan lag row: %w", err)
		}
		lags[part] = lag
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lag rows: %w", err)
	}
	return lags, nil
}

// LagReporter binds a Log to one consumer name so it can feed the metrics
// collector.
type LagReporter struct {
	log      *Log
	consumer string
}

// NewLagReporter creates a lag reporter for consumer.
func NewLagReporter(l *Log, consumer string) *LagReporter {
	return &LagReporter{log: l, consumer: consumer}
}

// CursorLag implements metrics.LagSource.
func (r *LagReporter) CursorLag(ctx context.Context) (map[int]int64, error) {
	return r.log.Lag(ctx, r.consumer)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed event id %q: %w", raw, err)
	}
	return id, nil
}
