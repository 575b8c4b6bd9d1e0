package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	databaseURL = flag.String("database-url", "postgres://localhost:5432/stgy?sslmode=disable", "Postgres connection string")
	dryRun      = flag.Bool("dry-run", false, "Print the statements without executing them")
	timeout     = flag.Duration("timeout", 30*time.Second, "Overall migration timeout")
)

// Every statement is idempotent, so the tool can run on every deploy.
var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "event_log table",
		stmt: `
CREATE TABLE IF NOT EXISTS event_log (
    partition_id  INT    NOT NULL,
    event_id      BIGINT NOT NULL,
    payload       JSONB  NOT NULL,
    PRIMARY KEY (partition_id, event_id)
)`,
	},
	{
		name: "event_cursors table",
		stmt: `
CREATE TABLE IF NOT EXISTS event_cursors (
    consumer       TEXT        NOT NULL,
    partition_id   INT         NOT NULL,
    last_event_id  BIGINT      NOT NULL DEFAULT 0,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (consumer, partition_id)
)`,
	},
	{
		name: "notifications table",
		stmt: `
CREATE TABLE IF NOT EXISTS notifications (
    user_id     TEXT        NOT NULL,
    slot        TEXT        NOT NULL,
    term        TEXT        NOT NULL,
    is_read     BOOLEAN     NOT NULL DEFAULT false,
    payload     JSONB       NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, slot, term)
)`,
	},
	{
		name: "notifications retention index",
		stmt: `
CREATE INDEX IF NOT EXISTS notifications_updated_at_idx
    ON notifications (updated_at)`,
	},
}

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.Println("Notifier Schema Migration Tool")
	log.Println("==============================")
	log.Printf("Database: %s", redacted(*databaseURL))
	log.Printf("Dry run: %v", *dryRun)

	if *dryRun {
		log.Println("\n[DRY RUN] Would apply the following statements:")
		for i, m := range migrations {
			log.Printf("%d. %s:%s\n", i+1, m.name, m.stmt)
		}
		log.Println("Dry run completed. No changes made.")
		log.Println("Run without -dry-run to apply the schema.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *databaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			log.Fatalf("Failed to apply %s: %v", m.name, err)
		}
		log.Printf("✓ Applied %d/%d: %s", i+1, len(migrations), m.name)
	}

	log.Println("\n✓ Schema is up to date.")
	log.Println("The posts and users tables belong to the main application and")
	log.Println("are not managed by this tool.")
}

// redacted masks the password in a connection string for logging
func redacted(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparsable)"
	}
	return u.Redacted()
}
