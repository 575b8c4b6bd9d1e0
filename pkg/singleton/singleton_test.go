package singleton

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKey tests that lock keys are stable and name-dependent
func TestKey(t *testing.T) {
	assert.Equal(t, Key(LockName), Key(LockName))
	assert.NotEqual(t, Key(LockName), Key("stgy:other"))
	assert.NotZero(t, Key(LockName))
}

// TestAcquireRelease tests the lock lifecycle on a dedicated session
func TestAcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(tryLockSQL)).
		WithArgs(Key(LockName)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(unlockSQL)).
		WithArgs(Key(LockName)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	gate, ok, err := Acquire(context.Background(), db, LockName)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, gate)

	gate.Release(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestAcquireHeldElsewhere tests standing down when another process has the lock
func TestAcquireHeldElsewhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(tryLockSQL)).
		WithArgs(Key(LockName)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	gate, ok, err := Acquire(context.Background(), db, LockName)
	require.NoError(t, err, "a held lock is not an error")
	assert.False(t, ok)
	assert.Nil(t, gate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestAcquireQueryError tests that connection failures surface as errors
func TestAcquireQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(tryLockSQL)).
		WillReturnError(sql.ErrConnDone)

	_, ok, err := Acquire(context.Background(), db, LockName)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestAcquireNilDB tests constructor argument checks
func TestAcquireNilDB(t *testing.T) {
	_, _, err := Acquire(context.Background(), nil, LockName)
	assert.Error(t, err)
}
