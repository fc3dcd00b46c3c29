package events

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-distributor/internal/adapter"
	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/logger"
	"github.com/feral-file/ff-distributor/internal/messaging"
)

// Config holds dispatcher pool and retry settings
type Config struct {
	WorkerPoolSize  int
	QueueSize       int
	RetryInitial    time.Duration
	RetryMaxBackoff time.Duration
	RetryMaxElapsed time.Duration
}

// Dispatcher publishes ledger events asynchronously so broker hiccups never
// block or fail the mutation that produced the event
type Dispatcher struct {
	publisher messaging.Publisher
	pool      pond.Pool
	clock     adapter.Clock
	config    Config
}

// NewDispatcher creates an event dispatcher backed by a bounded worker pool
func NewDispatcher(ctx context.Context, cfg Config, publisher messaging.Publisher, clock adapter.Clock) *Dispatcher {
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = 4
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1024
	}
	if cfg.RetryInitial == 0 {
		cfg.RetryInitial = 1 * time.Second
	}
	if cfg.RetryMaxBackoff == 0 {
		cfg.RetryMaxBackoff = 30 * time.Second
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = 5 * time.Minute
	}

	return &Dispatcher{
		publisher: publisher,
		clock:     clock,
		config:    cfg,
		pool: pond.NewPool(
			cfg.WorkerPoolSize,
			pond.WithQueueSize(cfg.QueueSize),
			pond.WithContext(ctx),
		),
	}
}

// NewEventID returns a time-ordered unique event ID
func (d *Dispatcher) NewEventID() string {
	return ulid.MustNewDefault(d.clock.Now()).String()
}

// Dispatch enqueues an event for publishing. The journal row is already
// committed, so delivery failures are retried in the background.
func (d *Dispatcher) Dispatch(event *domain.LedgerEvent) {
	d.pool.Submit(func() {
		if err := d.publishWithRetry(event); err != nil {
			logger.Error(err,
				zap.String("event_id", event.EventID),
				zap.String("event_type", string(event.Type)),
				zap.Uint64("distribution_id", event.DistributionID),
			)
		}
	})
}

// publishWithRetry publishes with exponential backoff and jitter
func (d *Dispatcher) publishWithRetry(event *domain.LedgerEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.config.RetryInitial
	b.MaxInterval = d.config.RetryMaxBackoff
	b.MaxElapsedTime = d.config.RetryMaxElapsed
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	operation := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return d.publisher.PublishEvent(ctx, event)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.Warn("Ledger event publish failed, retrying",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, b, notifyOnError); err != nil {
		return fmt.Errorf("failed to publish event after %d retries: %w", attemptCount, err)
	}

	return nil
}

// StopAndWait drains the pool, waiting for queued publishes to finish
func (d *Dispatcher) StopAndWait() {
	d.pool.StopAndWait()
}
