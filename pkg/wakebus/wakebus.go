package wakebus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stgy/notifier/pkg/log"
	"github.com/stgy/notifier/pkg/metrics"
	"github.com/stgy/notifier/pkg/partition"
)

const channelPrefix = "notifications:wake:"

// ChannelFor returns the wake channel name for a worker index.
func ChannelFor(worker int) string {
	return channelPrefix + strconv.Itoa(worker)
}

// Publisher publishes wake hints onto the channel of the worker that owns
// the partition. A hint carries no event data, only the partition id; losing
// one is harmless because the consumer re-drains on a timer.
type Publisher struct {
	client  *redis.Client
	workers int
	logger  zerolog.Logger
}

// NewPublisher creates a publisher that routes hints across workers channels.
func NewPublisher(client *redis.Client, workers int) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}

	return &Publisher{
		client:  client,
		workers: workers,
		logger:  log.WithComponent("wakebus"),
	}, nil
}

// Wake publishes a hint that partition part has new events.
func (p *Publisher) Wake(ctx context.Context, part int) error {
	owner := partition.OwnerOf(part, p.workers)
	if err := p.client.Publish(ctx, ChannelFor(owner), strconv.Itoa(part)).Err(); err != nil {
		return fmt.Errorf("failed to publish wake hint: %w", err)
	}
	return nil
}

// Subscriber receives wake hints for every worker channel of one process and
// hands the partition id to a dispatch callback. Payloads that do not parse
// as a partition id in range are counted and dropped.
type Subscriber struct {
	client     *redis.Client
	workers    int
	partitions int
	logger     zerolog.Logger
}

// NewSubscriber creates a subscriber covering all worker channels.
func NewSubscriber(client *redis.Client, workers, partitions int) (*Subscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if partitions <= 0 {
		return nil, fmt.Errorf("partitions must be positive, got %d", partitions)
	}

	return &Subscriber{
		client:     client,
		workers:    workers,
		partitions: partitions,
		logger:     log.WithComponent("wakebus"),
	}, nil
}

// Run subscribes and dispatches hints until ctx is canceled. Receive errors
// other than cancellation are logged and retried; the subscription itself is
// re-established by the client.
func (s *Subscriber) Run(ctx context.Context, dispatch func(part int)) error {
	channels := make([]string, s.workers)
	for w := range channels {
		channels[w] = ChannelFor(w)
	}

	pubsub := s.client.Subscribe(ctx, channels...)
	defer func() { _ = pubsub.Close() }()

	s.logger.Info().Strs("channels", channels).Msg("subscribed to wake channels")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("failed to receive wake hint")
			time.Sleep(time.Second)
			continue
		}

		part, err := strconv.Atoi(msg.Payload)
		if err != nil || part < 0 || part >= s.partitions {
			metrics.WakeHints.WithLabelValues("ignored").Inc()
			s.logger.Warn().
				Str("channel", msg.Channel).
				Str("payload", msg.Payload).
				Msg("ignoring malformed wake hint")
			continue
		}

		metrics.WakeHints.WithLabelValues("dispatched").Inc()
		dispatch(part)
	}
}
