package readstore

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(db)
	require.NoError(t, err)

	return store, mock
}

// TestPostOwner tests owner lookup for existing and deleted posts
func TestPostOwner(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectPostOwnerSQL)).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"owned_by"}).AddRow("U7"))

	owner, ok, err := store.PostOwner(context.Background(), "P1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "U7", owner)

	mock.ExpectQuery(regexp.QuoteMeta(selectPostOwnerSQL)).
		WithArgs("Pgone").
		WillReturnError(sql.ErrNoRows)

	_, ok, err = store.PostOwner(context.Background(), "Pgone")
	require.NoError(t, err)
	assert.False(t, ok, "deleted post must report ok=false without error")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostOwnerError tests that transient failures surface as errors
func TestPostOwnerError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectPostOwnerSQL)).
		WithArgs("P1").
		WillReturnError(sql.ErrConnDone)

	_, _, err := store.PostOwner(context.Background(), "P1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestNickname tests user nickname lookup
func TestNickname(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectNicknameSQL)).
		WithArgs("U7").
		WillReturnRows(sqlmock.NewRows([]string{"nickname"}).AddRow("ada"))

	nickname, ok, err := store.Nickname(context.Background(), "U7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada", nickname)

	mock.ExpectQuery(regexp.QuoteMeta(selectNicknameSQL)).
		WithArgs("Ugone").
		WillReturnError(sql.ErrNoRows)

	_, ok, err = store.Nickname(context.Background(), "Ugone")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostSnippet tests that the stored document is rendered to a preview
func TestPostSnippet(t *testing.T) {
	store, mock := newTestStore(t)

	doc := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"},{"type":"text","text":"world"}]}]}`
	mock.ExpectQuery(regexp.QuoteMeta(selectSnippetSQL)).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"snippet"}).AddRow(doc))

	preview, ok, err := store.PostSnippet(context.Background(), "P1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world", preview)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostSnippetNull tests posts with no snippet document
func TestPostSnippetNull(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectSnippetSQL)).
		WithArgs("P2").
		WillReturnRows(sqlmock.NewRows([]string{"snippet"}).AddRow(nil))

	preview, ok, err := store.PostSnippet(context.Background(), "P2")
	require.NoError(t, err)
	assert.True(t, ok, "post exists even with a null snippet")
	assert.Empty(t, preview)

	mock.ExpectQuery(regexp.QuoteMeta(selectSnippetSQL)).
		WithArgs("Pgone").
		WillReturnError(sql.ErrNoRows)

	_, ok, err = store.PostSnippet(context.Background(), "Pgone")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestNewValidation tests constructor argument checks
func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
