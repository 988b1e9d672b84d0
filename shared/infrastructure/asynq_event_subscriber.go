package infrastructure

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/draftea/booking-system/shared/events"
	"github.com/draftea/booking-system/shared/models"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ events.Subscriber = (*AsynqEventSubscriber)(nil)

// AsynqEventSubscriber runs an asynq server whose tasks are turned back into
// events and handed to a single handler
type AsynqEventSubscriber struct {
	redis   asynq.RedisConnOpt
	opts    AsynqSubscriberOptions
	server  *asynq.Server
	running atomic.Bool
	logger  *zap.Logger
}

type AsynqSubscriberOptions struct {
	Queue       string
	Concurrency int
	Topics      []events.Topic
}

func NewAsynqEventSubscriber(redis asynq.RedisConnOpt, opts AsynqSubscriberOptions, logger *zap.Logger) *AsynqEventSubscriber {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsynqEventSubscriber{
		redis:  redis,
		opts:   opts,
		logger: logger.With(zap.String("queue", opts.Queue)),
	}
}

// Subscribe registers the handler for every configured topic and starts the server
func (s *AsynqEventSubscriber) Subscribe(_ context.Context, handler events.EventHandler) error {
	if len(s.opts.Topics) == 0 {
		return errors.New("asynq subscriber needs at least one topic")
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrSubscriberRunning
	}

	s.server = asynq.NewServer(s.redis, asynq.Config{
		Concurrency: s.opts.Concurrency,
		Queues: map[string]int{
			s.opts.Queue: 1,
		},
		Logger:       s.logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(s.reportFailure),
	})

	mux := asynq.NewServeMux()
	for _, topic := range s.opts.Topics {
		mux.HandleFunc(topic.String(), s.taskHandler(handler))
	}

	if err := s.server.Start(mux); err != nil {
		s.running.Store(false)
		return errors.Wrap(err, "failed to start asynq server")
	}

	s.logger.Info("asynq subscriber started", zap.Int("concurrency", s.opts.Concurrency))
	return nil
}

func (s *AsynqEventSubscriber) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.server.Shutdown()
	s.logger.Info("asynq subscriber stopped")
	return nil
}

func (s *AsynqEventSubscriber) taskHandler(handler events.EventHandler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		return handler.Handle(ctx, taskToEvent(ctx, task))
	}
}

func (s *AsynqEventSubscriber) reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	if retried >= maxRetry {
		s.logger.Error("giving up on task after max retries",
			zap.String("topic", task.Type()),
			zap.ByteString("payload", task.Payload()),
			zap.Int("retried", retried),
			zap.Error(err),
		)
		return
	}

	s.logger.Warn("task failed, will be retried",
		zap.String("topic", task.Type()),
		zap.Int("retried", retried),
		zap.Error(err),
	)
}

func taskToEvent(ctx context.Context, task *asynq.Task) *events.Event {
	id, ok := asynq.GetTaskID(ctx)
	if !ok {
		id = models.GenerateUUID().String()
	}
	retried, _ := asynq.GetRetryCount(ctx)

	return &events.Event{
		ID:      models.ID(id),
		Topic:   events.Topic(task.Type()),
		Version: "1.0",
		Payload: task.Payload(),
		Metadata: events.Metadata{
			events.AttemptKey: strconv.Itoa(retried + 1),
		},
		Timestamp: time.Now().UTC(),
	}
}
