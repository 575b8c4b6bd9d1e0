package eventlog

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stgy/notifier/pkg/idgen"
	"github.com/stgy/notifier/pkg/types"
)

type stubWake struct {
	calls []int
	err   error
}

func (s *stubWake) Wake(ctx context.Context, partition int) error {
	s.calls = append(s.calls, partition)
	return s.err
}

func newTestLog(t *testing.T, partitions int, wake WakePublisher) (*Log, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer, err := idgen.NewIssuer(1)
	require.NoError(t, err)

	l, err := New(db, issuer, partitions, 30*24*time.Hour, wake)
	require.NoError(t, err)

	return l, mock
}

// TestNew tests constructor validation
func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	issuer, err := idgen.NewIssuer(0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		db         *sql.DB
		issuer     *idgen.Issuer
		partitions int
		retention  time.Duration
		wantErr    bool
	}{
		{"valid", db, issuer, 16, 24 * time.Hour, false},
		{"nil wake allowed", db, issuer, 4, time.Hour, false},
		{"nil db", nil, issuer, 16, time.Hour, true},
		{"nil issuer", db, nil, 16, time.Hour, true},
		{"zero partitions", db, issuer, 0, time.Hour, true},
		{"negative retention", db, issuer, 16, -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.db, tt.issuer, tt.partitions, tt.retention, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestRecordLike tests the append path end to end
func TestRecordLike(t *testing.T) {
	wake := &stubWake{}
	l, mock := newTestLog(t, 16, wake)

	// affinity key for a like is the liked post id; "P5" folds to 5
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(5, sqlmock.AnyArg(), []byte(`{"type":"like","userId":"U1","postId":"P5"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	before := time.Now()
	id, err := l.RecordLike(context.Background(), l.db, "U1", "P5")
	require.NoError(t, err)

	ts := idgen.TimestampOf(id)
	assert.GreaterOrEqual(t, ts, before.UnixMilli()-50)
	assert.LessOrEqual(t, ts, time.Now().UnixMilli()+50)

	assert.Equal(t, []int{5}, wake.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordFollow tests partitioning by followee
func TestRecordFollow(t *testing.T) {
	wake := &stubWake{}
	l, mock := newTestLog(t, 4, wake)

	// "ab" folds to 0xab = 171, 171 mod 4 = 3
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(3, sqlmock.AnyArg(), []byte(`{"type":"follow","followerId":"U1","followeeId":"ab"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := l.RecordFollow(context.Background(), l.db, "U1", "ab")
	require.NoError(t, err)

	assert.Equal(t, []int{3}, wake.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordInvalidPayload tests that validation rejects before any SQL runs
func TestRecordInvalidPayload(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	_, err := l.Record(context.Background(), l.db, types.Payload{Type: types.EventLike})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordInsertError tests that a failed append surfaces the error
func TestRecordInsertError(t *testing.T) {
	wake := &stubWake{}
	l, mock := newTestLog(t, 16, wake)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WillReturnError(sql.ErrConnDone)

	_, err := l.RecordLike(context.Background(), l.db, "U1", "P5")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Empty(t, wake.calls, "no wake hint after failed append")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordWakeFailureIsNonFatal tests that hint publish errors do not fail the append
func TestRecordWakeFailureIsNonFatal(t *testing.T) {
	wake := &stubWake{err: assert.AnError}
	l, mock := newTestLog(t, 16, wake)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := l.RecordLike(context.Background(), l.db, "U1", "P5")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, wake.calls, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordNilWake tests appends without a wake publisher
func TestRecordNilWake(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := l.RecordLike(context.Background(), l.db, "U1", "P5")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLoadCursor tests read-through creation of cursor rows
func TestLoadCursor(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectExec(regexp.QuoteMeta(ensureCursorSQL)).
		WithArgs("notification", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectCursorSQL)).
		WithArgs("notification", 3).
		WillReturnRows(sqlmock.NewRows([]string{"last_event_id"}).AddRow("42"))

	cursor, err := l.LoadCursor(context.Background(), "notification", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLoadCursorExisting tests that creation does not move an existing cursor
func TestLoadCursorExisting(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	// conflict: insert is a no-op, select sees the stored value
	mock.ExpectExec(regexp.QuoteMeta(ensureCursorSQL)).
		WithArgs("notification", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectCursorSQL)).
		WithArgs("notification", 0).
		WillReturnRows(sqlmock.NewRows([]string{"last_event_id"}).AddRow("9007199254740993"))

	cursor, err := l.LoadCursor(context.Background(), "notification", 0)
	require.NoError(t, err)

	// beyond float64's exact integer range; must survive unharmed
	assert.Equal(t, uint64(9007199254740993), cursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveCursor tests cursor advancement inside a caller transaction
func TestSaveCursor(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateCursorSQL)).
		WithArgs("notification", 7, "123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := l.db.Begin()
	require.NoError(t, err)

	err = l.SaveCursor(context.Background(), tx, "notification", 7, 123456)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveCursorMissingRow tests that updating an absent cursor fails loudly
func TestSaveCursorMissingRow(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectExec(regexp.QuoteMeta(updateCursorSQL)).
		WithArgs("notification", 7, "123456").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := l.SaveCursor(context.Background(), l.db, "notification", 7, 123456)
	assert.ErrorContains(t, err, "does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFetchBatch tests batch reads past the cursor
func TestFetchBatch(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	rows := sqlmock.NewRows([]string{"event_id", "payload"}).
		AddRow("101", []byte(`{"type":"like","userId":"U1","postId":"P5"}`)).
		AddRow("102", []byte(`{"type":"follow","followerId":"U2","followeeId":"U3"}`))

	mock.ExpectQuery(regexp.QuoteMeta(fetchBatchSQL)).
		WithArgs(5, "100", 50).
		WillReturnRows(rows)

	events, err := l.FetchBatch(context.Background(), 5, 100, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, uint64(101), events[0].ID)
	assert.Equal(t, 5, events[0].Partition)
	assert.Equal(t, types.EventLike, events[0].Payload.Type)
	assert.Equal(t, "P5", events[0].Payload.PostID)

	assert.Equal(t, uint64(102), events[1].ID)
	assert.Equal(t, types.EventFollow, events[1].Payload.Type)
	assert.Equal(t, "U3", events[1].Payload.FolloweeID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFetchBatchEmpty tests a drained partition
func TestFetchBatchEmpty(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectQuery(regexp.QuoteMeta(fetchBatchSQL)).
		WithArgs(2, "0", 100).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "payload"}))

	events, err := l.FetchBatch(context.Background(), 2, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFetchBatchUnknownKind tests that unrecognized payload types still decode
func TestFetchBatchUnknownKind(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectQuery(regexp.QuoteMeta(fetchBatchSQL)).
		WithArgs(0, "0", 10).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "payload"}).
			AddRow("7", []byte(`{"type":"repost","userId":"U1"}`)))

	events, err := l.FetchBatch(context.Background(), 0, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// the consumer decides how to handle kinds it does not know
	assert.Equal(t, types.EventKind("repost"), events[0].Payload.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPurgeOld tests the retention sweep transaction shape
func TestPurgeOld(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(purgeTimeoutSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(purgeEventsSQL)).
		WithArgs(4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 17))
	mock.ExpectCommit()

	purged, err := l.PurgeOld(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(17), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPurgeOldError tests rollback when the delete fails
func TestPurgeOldError(t *testing.T) {
	l, mock := newTestLog(t, 16, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(purgeTimeoutSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(purgeEventsSQL)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := l.PurgeOld(context.Background(), 4)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLag tests per-partition lag with zero fill
func TestLag(t *testing.T) {
	l, mock := newTestLog(t, 4, nil)

	mock.ExpectQuery(regexp.QuoteMeta(cursorLagSQL)).
		WithArgs("notification").
		WillReturnRows(sqlmock.NewRows([]string{"partition_id", "count"}).
			AddRow(0, 3).
			AddRow(2, 1))

	lags, err := l.Lag(context.Background(), "notification")
	require.NoError(t, err)

	assert.Equal(t, map[int]int64{0: 3, 1: 0, 2: 1, 3: 0}, lags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLagReporter tests the metrics adapter
func TestLagReporter(t *testing.T) {
	l, mock := newTestLog(t, 2, nil)

	mock.ExpectQuery(regexp.QuoteMeta(cursorLagSQL)).
		WithArgs("notification").
		WillReturnRows(sqlmock.NewRows([]string{"partition_id", "count"}).AddRow(1, 8))

	reporter := NewLagReporter(l, "notification")
	lags, err := reporter.CursorLag(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[int]int64{0: 0, 1: 8}, lags)
	assert.NoError(t, mock.ExpectationsWereMet())
}
