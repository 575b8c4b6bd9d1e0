package readstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stgy/notifier/pkg/snippet"
)

// The aggregator only ever reads three columns from the application schema.
const (
	selectPostOwnerSQL = `SELECT owned_by FROM posts WHERE id = $1`
	selectNicknameSQL  = `SELECT nickname FROM users WHERE id = $1`
	selectSnippetSQL   = `SELECT snippet FROM posts WHERE id = $1`
)

// Store is the read-only view of the application's posts and users tables.
// A deleted post or user simply has no row; callers get ok=false, not an
// error, and decide what a missing entity means for the event at hand.
type Store struct {
	db *sql.DB
}

// New creates a read store over db.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &Store{db: db}, nil
}

// PostOwner returns the owning user of a post, or ok=false if the post does
// not exist.
func (s *Store) PostOwner(ctx context.Context, postID string) (string, bool, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, selectPostOwnerSQL, postID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up post owner: %w", err)
	}
	return owner, true, nil
}

// Nickname returns a user's display nickname, or ok=false if the user does
// not exist.
func (s *Store) Nickname(ctx context.Context, userID string) (string, bool, error) {
	var nickname string
	err := s.db.QueryRowContext(ctx, selectNicknameSQL, userID).Scan(&nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up nickname: %w", err)
	}
	return nickname, true, nil
}

// PostSnippet returns the plaintext preview of a post's stored snippet
// document, or ok=false if the post does not exist. Posts without a snippet
// yield an empty preview.
func (s *Store) PostSnippet(ctx context.Context, postID string) (string, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, selectSnippetSQL, postID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up post snippet: %w", err)
	}
	if !raw.Valid {
		return "", true, nil
	}
	return snippet.Render(raw.String), true, nil
}
