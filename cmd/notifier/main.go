package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stgy/notifier/pkg/config"
	"github.com/stgy/notifier/pkg/eventlog"
	"github.com/stgy/notifier/pkg/idgen"
	"github.com/stgy/notifier/pkg/log"
	"github.com/stgy/notifier/pkg/metrics"
	"github.com/stgy/notifier/pkg/notifier"
	"github.com/stgy/notifier/pkg/readstore"
	"github.com/stgy/notifier/pkg/singleton"
	"github.com/stgy/notifier/pkg/wakebus"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Stgy notification fan-out daemon",
	Long: `Notifier drains the stgy interaction event log and materializes
per-recipient notification aggregates.

One instance runs per deployment, guarded by a database advisory lock;
a second instance finds the lock held and exits cleanly, so rolling
deploys and cron-style supervisors are safe.`,
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"notifier version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML config file (default $NOTIFIER_CONFIG)")
}

func runDaemon() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogFormat == "json",
	})
	metrics.SetVersion(Version)

	// short instance id distinguishes overlapping deployments in shared logs
	instance := uuid.NewString()[:8]
	logger := log.Logger.With().Str("instance", instance).Logger()
	logger.Info().Str("version", Version).Msg("notifier starting")
	cfg.LogConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// one tx per worker, plus the pinned singleton session, sweeps, and
	// the lag sampler
	db.SetMaxOpenConns(cfg.NotificationWorkers*2 + 4)
	db.SetMaxIdleConns(cfg.NotificationWorkers + 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := pingDatabase(ctx, db); err != nil {
		metrics.RegisterComponent("database", true, false, err.Error())
		return fmt.Errorf("database unreachable: %w", err)
	}
	metrics.RegisterComponent("database", true, true, "connected")
	logger.Info().Msg("database connected")

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	if err := rdb.Ping(ctx).Err(); err != nil {
		// the periodic tick drains without hints, so a down wake bus
		// degrades latency, not correctness
		metrics.RegisterComponent("wakebus", false, false, err.Error())
		logger.Warn().Err(err).Msg("wake bus unreachable, continuing on tick only")
	} else {
		metrics.RegisterComponent("wakebus", false, true, "connected")
		logger.Info().Msg("wake bus connected")
	}

	gate, acquired, err := singleton.Acquire(ctx, db, singleton.LockName)
	if err != nil {
		return fmt.Errorf("failed to acquire singleton lock: %w", err)
	}
	if !acquired {
		logger.Info().Str("lock", singleton.LockName).
			Msg("another instance holds the notification lock, exiting")
		return nil
	}
	defer func() {
		releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRelease()
		gate.Release(releaseCtx)
	}()
	logger.Info().Str("lock", singleton.LockName).Msg("singleton lock acquired")

	issuer, err := idgen.NewIssuer(cfg.IDIssueWorkerID)
	if err != nil {
		return err
	}

	// the daemon only consumes; producers publish their own wake hints
	eventLog, err := eventlog.New(db, issuer,
		cfg.EventLogPartitions,
		time.Duration(cfg.EventLogRetentionDays)*24*time.Hour,
		nil)
	if err != nil {
		return err
	}

	reads, err := readstore.New(db)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	n, err := notifier.New(db, eventLog, reads, notifier.Config{
		Workers:               cfg.NotificationWorkers,
		Partitions:            cfg.EventLogPartitions,
		BatchSize:             cfg.NotificationBatchSize,
		RecordCap:             cfg.PayloadRecords,
		Timezone:              loc,
		DrainTick:             cfg.DrainTickInterval,
		NotificationRetention: time.Duration(cfg.NotificationRetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	sub, err := wakebus.NewSubscriber(rdb, cfg.NotificationWorkers, cfg.EventLogPartitions)
	if err != nil {
		return err
	}

	httpSrv := metricsServer(cfg.MetricsAddr)
	fatalCh := make(chan error, 3)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatalCh <- fmt.Errorf("metrics listener failed: %w", err)
		}
	}()
	logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")

	collector := metrics.NewCollector(eventlog.NewLagReporter(eventLog, notifier.Consumer), 15*time.Second)
	collector.Start()
	defer collector.Stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sub.Run(ctx, n.Hint); err != nil && !errors.Is(err, context.Canceled) {
			fatalCh <- fmt.Errorf("wake subscriber stopped: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fatalCh <- fmt.Errorf("notifier stopped: %w", err)
		}
	}()

	logger.Info().Msg("notifier running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var fatal error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("signal received, shutting down")
	case fatal = <-fatalCh:
		logger.Error().Err(fatal).Msg("fatal error, shutting down")
	}

	// stop the subscriber and let in-flight drains finish
	cancel()
	wg.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)

	logger.Info().Msg("shutdown complete")
	return fatal
}

// pingDatabase retries until the pool answers or the startup window closes
func pingDatabase(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), pingCtx)
	return backoff.Retry(func() error { return db.PingContext(pingCtx) }, policy)
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
