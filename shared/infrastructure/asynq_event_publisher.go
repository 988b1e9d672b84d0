package infrastructure

import (
	"context"
	"time"

	"github.com/draftea/booking-system/shared/events"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ events.Publisher = (*AsynqEventPublisher)(nil)

// AsynqEventPublisher enqueues events as asynq tasks on a Redis backed queue.
// The task type is the event topic and the task payload is the event payload,
// so identical requests share a uniqueness lock.
type AsynqEventPublisher struct {
	client    *asynq.Client
	queue     string
	maxRetry  int
	dedupeTTL time.Duration
	logger    *zap.Logger
}

type AsynqPublisherOptions struct {
	Queue     string
	MaxRetry  int
	DedupeTTL time.Duration
}

func NewAsynqEventPublisher(redis asynq.RedisConnOpt, opts AsynqPublisherOptions, logger *zap.Logger) *AsynqEventPublisher {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsynqEventPublisher{
		client:    asynq.NewClient(redis),
		queue:     opts.Queue,
		maxRetry:  opts.MaxRetry,
		dedupeTTL: opts.DedupeTTL,
		logger:    logger,
	}
}

// Publish enqueues every event. An event rejected as a duplicate of a task
// still queued counts as published.
func (p *AsynqEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		if err := p.enqueue(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *AsynqEventPublisher) enqueue(ctx context.Context, event *events.Event) error {
	opts := []asynq.Option{
		asynq.Queue(p.queue),
		asynq.MaxRetry(p.maxRetry),
	}
	if _, ok := event.Metadata.Get(events.DeduplicationKey); ok && p.dedupeTTL > 0 {
		opts = append(opts, asynq.Unique(p.dedupeTTL))
	}

	task := asynq.NewTask(event.Topic.String(), event.Payload, opts...)

	info, err := p.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		p.logger.Debug("task already enqueued",
			zap.String("topic", event.Topic.String()),
			zap.String("aggregate_id", event.AggregateID),
		)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to enqueue %s", event.Topic)
	}

	p.logger.Debug("task enqueued",
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.String("topic", event.Topic.String()),
	)
	return nil
}

func (p *AsynqEventPublisher) Close() error {
	return p.client.Close()
}
