package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stgy/notifier/pkg/config"
	"github.com/stgy/notifier/pkg/eventlog"
	"github.com/stgy/notifier/pkg/idgen"
	"github.com/stgy/notifier/pkg/log"
	"github.com/stgy/notifier/pkg/wakebus"
)

var produceCmd = &cobra.Command{
	Use:   "produce KIND",
	Short: "Append one interaction event to the log",
	Long: `Append a single interaction event, for development and smoke tests.
The event goes through the same producer path the application uses: id
issue, partition routing, insert, and a wake hint for the owning worker.

KIND is one of: follow, like, reply, mention.

Examples:
  # U1 follows U2
  notifier produce follow --actor U1 --followee U2

  # U1 likes post P5
  notifier produce like --actor U1 --post P5

  # U1 replies to post PP with post R1
  notifier produce reply --actor U1 --post R1 --reply-to PP

  # U1 mentions U5 in post P9
  notifier produce mention --actor U1 --post P9 --mentioned U5`,
	Args: cobra.ExactArgs(1),
	RunE: runProduce,
}

func init() {
	produceCmd.Flags().String("actor", "", "Acting user id (required)")
	produceCmd.Flags().String("post", "", "Post id (like: liked post; reply: the reply; mention: mentioning post)")
	produceCmd.Flags().String("reply-to", "", "Parent post id (reply only)")
	produceCmd.Flags().String("followee", "", "Followed user id (follow only)")
	produceCmd.Flags().String("mentioned", "", "Mentioned user id (mention only)")
	_ = produceCmd.MarkFlagRequired("actor")

	rootCmd.AddCommand(produceCmd)
}

func runProduce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogFormat == "json",
	})

	actor, _ := cmd.Flags().GetString("actor")
	post, _ := cmd.Flags().GetString("post")
	replyTo, _ := cmd.Flags().GetString("reply-to")
	followee, _ := cmd.Flags().GetString("followee")
	mentioned, _ := cmd.Flags().GetString("mentioned")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	pub, err := wakebus.NewPublisher(rdb, cfg.NotificationWorkers)
	if err != nil {
		return err
	}

	issuer, err := idgen.NewIssuer(cfg.IDIssueWorkerID)
	if err != nil {
		return err
	}

	eventLog, err := eventlog.New(db, issuer,
		cfg.EventLogPartitions,
		time.Duration(cfg.EventLogRetentionDays)*24*time.Hour,
		pub)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id uint64
	switch args[0] {
	case "follow":
		if followee == "" {
			return fmt.Errorf("--followee is required for follow")
		}
		id, err = eventLog.RecordFollow(ctx, tx, actor, followee)
	case "like":
		if post == "" {
			return fmt.Errorf("--post is required for like")
		}
		id, err = eventLog.RecordLike(ctx, tx, actor, post)
	case "reply":
		if post == "" || replyTo == "" {
			return fmt.Errorf("--post and --reply-to are required for reply")
		}
		id, err = eventLog.RecordReply(ctx, tx, actor, post, replyTo)
	case "mention":
		if post == "" || mentioned == "" {
			return fmt.Errorf("--post and --mentioned are required for mention")
		}
		id, err = eventLog.RecordMention(ctx, tx, actor, post, mentioned)
	default:
		return fmt.Errorf("unknown event kind %q (want follow, like, reply, mention)", args[0])
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	fmt.Printf("✓ Event appended: kind=%s id=%d\n", args[0], id)
	return nil
}
