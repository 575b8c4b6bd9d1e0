package notifier

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stgy/notifier/pkg/eventlog"
	"github.com/stgy/notifier/pkg/log"
	"github.com/stgy/notifier/pkg/metrics"
	"github.com/stgy/notifier/pkg/partition"
	"github.com/stgy/notifier/pkg/readstore"
)

// Consumer is the cursor namespace of the notification materializer.
const Consumer = "notification"

// defaultSweepThreshold is how many merged events trigger one retention
// sweep of the notifications table.
const defaultSweepThreshold = 100

// Config carries the drain-side tunables.
type Config struct {
	Workers    int
	Partitions int
	BatchSize  int
	RecordCap  int

	// Timezone buckets events into calendar terms.
	Timezone *time.Location

	// DrainTick re-drains every owned partition even without wake hints.
	DrainTick time.Duration

	// NotificationRetention bounds how long materialized rows live.
	NotificationRetention time.Duration

	// SweepThreshold overrides defaultSweepThreshold when positive.
	SweepThreshold int
}

// Notifier owns the worker pool that drains event log partitions into
// notification rows. Partition p is always drained by worker p mod Workers,
// and never by two goroutines at once.
type Notifier struct {
	cfg      Config
	db       *sql.DB
	eventLog *eventlog.Log
	reads    *readstore.Store
	logger   zerolog.Logger

	// wake fan-in, one channel per worker; Hint claims a partition before
	// enqueueing so each claimed partition occupies at most one slot
	wake []chan int

	mu         sync.Mutex
	inFlight   map[int]bool
	pending    map[int]bool
	sinceSweep int

	// drainFn runs one pass; swapped out by state machine tests
	drainFn func(ctx context.Context, part int, logger zerolog.Logger) (int, error)

	wg sync.WaitGroup
}

// New wires a notifier over the shared database pool, the event log, and the
// application read store.
func New(db *sql.DB, eventLog *eventlog.Log, reads *readstore.Store, cfg Config) (*Notifier, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if eventLog == nil {
		return nil, fmt.Errorf("event log is required")
	}
	if reads == nil {
		return nil, fmt.Errorf("read store is required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Partitions < cfg.Workers {
		return nil, fmt.Errorf("partitions (%d) must be >= workers (%d)", cfg.Partitions, cfg.Workers)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.RecordCap <= 0 {
		return nil, fmt.Errorf("record cap must be positive, got %d", cfg.RecordCap)
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.DrainTick <= 0 {
		return nil, fmt.Errorf("drain tick must be positive, got %v", cfg.DrainTick)
	}
	if cfg.NotificationRetention <= 0 {
		return nil, fmt.Errorf("notification retention must be positive, got %v", cfg.NotificationRetention)
	}
	if cfg.SweepThreshold <= 0 {
		cfg.SweepThreshold = defaultSweepThreshold
	}

	wake := make([]chan int, cfg.Workers)
	for w := range wake {
		wake[w] = make(chan int, cfg.Partitions)
	}

	n := &Notifier{
		cfg:      cfg,
		db:       db,
		eventLog: eventLog,
		reads:    reads,
		logger:   log.WithComponent("notifier"),
		wake:     wake,
		inFlight: make(map[int]bool),
		pending:  make(map[int]bool),
	}
	n.drainFn = n.drainPass
	return n, nil
}

// Run starts the workers and blocks until ctx is canceled and every worker
// has drained its current pass.
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.Info().
		Int("workers", n.cfg.Workers).
		Int("partitions", n.cfg.Partitions).
		Dur("tick", n.cfg.DrainTick).
		Msg("notifier starting")

	for w := 0; w < n.cfg.Workers; w++ {
		n.wg.Add(1)
		go n.worker(ctx, w)
	}

	n.wg.Wait()
	n.logger.Info().Msg("notifier stopped")
	return ctx.Err()
}

// Hint tells the notifier that a partition probably has new events. Safe to
// call from any goroutine; duplicate hints for a partition already being
// drained collapse into a single follow-up pass.
func (n *Notifier) Hint(part int) {
	if part < 0 || part >= n.cfg.Partitions {
		return
	}
	if !n.claim(part) {
		return
	}
	// the channel holds one slot per partition, so this never blocks
	n.wake[partition.OwnerOf(part, n.cfg.Workers)] <- part
}

// claim transitions a partition Idle -> Draining. A false return means the
// partition was already draining and a follow-up pass has been recorded.
func (n *Notifier) claim(part int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.inFlight[part] {
		n.pending[part] = true
		return false
	}
	n.inFlight[part] = true
	return true
}

// release ends a drain. When a hint arrived mid-drain the partition stays
// claimed and the caller must run one more drain cycle.
func (n *Notifier) release(part int) (again bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending[part] {
		delete(n.pending, part)
		return true
	}
	delete(n.inFlight, part)
	return false
}

func (n *Notifier) worker(ctx context.Context, w int) {
	defer n.wg.Done()

	logger := log.WithWorker(w)
	owned := partition.Owned(w, n.cfg.Workers, n.cfg.Partitions)

	metrics.WorkersRunning.Inc()
	defer metrics.WorkersRunning.Dec()

	logger.Info().Ints("partitions", owned).Msg("worker starting")

	// hints published while no process was live are gone; drain everything
	// owned once at startup
	n.drainOwned(ctx, owned, logger)

	ticker := time.NewTicker(n.cfg.DrainTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopping")
			return
		case part := <-n.wake[w]:
			n.drainPartition(ctx, part, logger)
		case <-ticker.C:
			n.drainOwned(ctx, owned, logger)
		}
	}
}

func (n *Notifier) drainOwned(ctx context.Context, owned []int, logger zerolog.Logger) {
	for _, part := range owned {
		if ctx.Err() != nil {
			return
		}
		if n.claim(part) {
			n.drainPartition(ctx, part, logger)
		}
	}
}

// drainPartition runs passes until one comes back empty, then releases the
// claim; a hint received meanwhile triggers one more cycle.
func (n *Notifier) drainPartition(ctx context.Context, part int, logger zerolog.Logger) {
	for {
		for ctx.Err() == nil {
			processed, err := n.drainFn(ctx, part, logger)
			if processed > 0 {
				n.noteProcessed(ctx, processed, logger)
			}
			if err != nil {
				metrics.DrainErrors.Inc()
				logger.Error().Err(err).Int("partition", part).Msg("drain pass failed")
				break
			}
			if processed == 0 {
				break
			}

			// the pass moved the cursor forward; piggyback the event purge
			if _, err := n.eventLog.PurgeOld(ctx, part); err != nil {
				logger.Warn().Err(err).Int("partition", part).Msg("event purge failed")
			}
		}

		if !n.release(part) {
			return
		}
	}
}
