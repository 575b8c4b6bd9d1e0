package singleton

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/stgy/notifier/pkg/log"
)

// LockName guards the notification pipeline: only one deployment may drain
// the event log at a time.
const LockName = "stgy:notification"

const (
	tryLockSQL = `SELECT pg_try_advisory_lock($1)`
	unlockSQL  = `SELECT pg_advisory_unlock($1)`
)

// Key derives the 64-bit advisory lock key for a name. FNV-64a keeps the
// mapping stable across releases and languages.
func Key(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// Gate is a held advisory lock pinned to its own database session. The lock
// lives exactly as long as the session, so losing the connection releases it
// server-side.
type Gate struct {
	conn   *sql.Conn
	key    int64
	name   string
	logger zerolog.Logger
}

// Acquire attempts the named lock without blocking. ok=false means another
// process holds it and this one should stand down.
func Acquire(ctx context.Context, db *sql.DB, name string) (*Gate, bool, error) {
	if db == nil {
		return nil, false, fmt.Errorf("db is required")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open lock session: %w", err)
	}

	key := Key(name)

	var locked bool
	if err := conn.QueryRowContext(ctx, tryLockSQL, key).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	if !locked {
		_ = conn.Close()
		return nil, false, nil
	}

	logger := log.WithComponent("singleton")
	logger.Info().Str("name", name).Int64("key", key).Msg("acquired singleton lock")

	return &Gate{conn: conn, key: key, name: name, logger: logger}, true, nil
}

// Release unlocks and closes the session. Errors are logged, not returned:
// closing the session releases the lock server-side regardless.
func (g *Gate) Release(ctx context.Context) {
	var unlocked bool
	if err := g.conn.QueryRowContext(ctx, unlockSQL, g.key).Scan(&unlocked); err != nil {
		g.logger.Warn().Err(err).Str("name", g.name).Msg("failed to release singleton lock")
	} else if !unlocked {
		g.logger.Warn().Str("name", g.name).Msg("singleton lock was not held at release")
	}

	if err := g.conn.Close(); err != nil {
		g.logger.Warn().Err(err).Msg("failed to close lock session")
	}
}
