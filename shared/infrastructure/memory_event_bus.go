package infrastructure

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	_ events.Publisher  = (*MemoryEventBus)(nil)
	_ events.Subscriber = (*MemoryEventBus)(nil)
)

var ErrBusClosed = errors.New("event bus is closed")

const (
	memoryRetryInitialInterval = 10 * time.Millisecond
	memoryRetryMaxInterval     = time.Second
)

// MemoryEventBus is an in-process at-least-once broker. A failed delivery is
// retried by the same worker with exponential backoff until it reaches the
// attempt limit, then dropped.
type MemoryEventBus struct {
	queue       chan *events.Event
	workers     int
	maxAttempts int
	logger      *zap.Logger

	retryInitialInterval time.Duration
	retryMaxInterval     time.Duration

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Bool
	closed  atomic.Bool
}

func NewMemoryEventBus(workers, maxAttempts, buffer int, logger *zap.Logger) *MemoryEventBus {
	if workers <= 0 {
		workers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryEventBus{
		queue:       make(chan *events.Event, buffer),
		workers:     workers,
		maxAttempts: maxAttempts,
		logger:      logger,

		retryInitialInterval: memoryRetryInitialInterval,
		retryMaxInterval:     memoryRetryMaxInterval,
	}
}

// Publish queues a copy of every event, blocking while the buffer is full
func (b *MemoryEventBus) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		if b.closed.Load() {
			return ErrBusClosed
		}

		delivery := event.Clone()
		delivery.Metadata.Set(events.AttemptKey, "1")

		select {
		case b.queue <- delivery:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "failed to publish event")
		}
	}
	return nil
}

// Subscribe starts the worker pool
func (b *MemoryEventBus) Subscribe(ctx context.Context, handler events.EventHandler) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrSubscriberRunning
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.consume(ctx, handler)
		}()
	}

	return nil
}

func (b *MemoryEventBus) Name() string {
	return "memory-broker"
}

// Check fails once the bus has been closed
func (b *MemoryEventBus) Check(context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	return nil
}

// Pending returns the number of queued deliveries
func (b *MemoryEventBus) Pending() int {
	return len(b.queue)
}

func (b *MemoryEventBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
	return nil
}

func (b *MemoryEventBus) consume(ctx context.Context, handler events.EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.queue:
			b.deliver(ctx, handler, event)
		}
	}
}

// deliver retries in place so a failing event never waits on the queue it is consumed from
func (b *MemoryEventBus) deliver(ctx context.Context, handler events.EventHandler, event *events.Event) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.retryInitialInterval
	policy.MaxInterval = b.retryMaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		event.Metadata.Set(events.AttemptKey, strconv.Itoa(attempt))

		err := handler.Handle(ctx, event)
		if err != nil && attempt < b.maxAttempts {
			b.logger.Warn("event handling failed, retrying",
				zap.String("topic", event.Topic.String()),
				zap.String("aggregate_id", event.AggregateID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(b.maxAttempts)))

	if err != nil && ctx.Err() == nil {
		b.logger.Error("giving up on event after max attempts",
			zap.String("topic", event.Topic.String()),
			zap.String("aggregate_id", event.AggregateID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
