package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ events.Subscriber = (*SQSEventSubscriber)(nil)

const (
	SQSMessageIDKey     = "sqs_message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
)

var ErrSubscriberRunning = errors.New("subscriber is already running")

// SQSAPI is the subset of the SQS client used by the subscriber
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

type sqsMessage struct {
	Message types.Message
	Event   *events.Event
	Err     error
}

// snsNotification is the body SQS receives from an SNS subscription without raw delivery
type snsNotification struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// SQSEventSubscriber consumes event envelopes from an SQS queue with a pool of
// readers, workers and cleaners
type SQSEventSubscriber struct {
	mux              sync.RWMutex
	wg               sync.WaitGroup
	inboundMessages  chan *sqsMessage
	outboundMessages chan *sqsMessage
	cancel           context.CancelFunc
	running          atomic.Bool
	options          *sqsSubscriberOptions

	client   SQSAPI
	queueURL string
	handler  events.EventHandler
	logger   *zap.Logger
}

type sqsSubscriberOptions struct {
	workers                        int32
	readers                        int32
	cleaners                       int32
	maxNumberOfMessages            int32
	waitTimeSeconds                int32
	visibilityTimeout              int32
	sleepTimeAfterEmptyReceive     time.Duration
	sleepTimeAfterError            time.Duration
	extendVisibilityTimeoutOnError bool
	receiveCountRange              int32
	visibilityTimeoutOffset        int32
	maxVisibilityTimeout           int32
	maxReceiveCount                int
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

func WithWorkers(workers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.workers = workers
	}
}

func WithReaders(readers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.readers = readers
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.visibilityTimeout = timeout
	}
}

func WithWaitTime(seconds int32, sleepAfterEmpty time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
		o.sleepTimeAfterEmptyReceive = sleepAfterEmpty
	}
}

// WithMaxReceiveCount bounds redeliveries: a message that still fails on its
// n-th receive is dropped and left for the sweeper
func WithMaxReceiveCount(n int) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.maxReceiveCount = n
	}
}

// NewSQSEventSubscriber creates a new SQS event subscriber
func NewSQSEventSubscriber(client SQSAPI, queueURL string, logger *zap.Logger, opts ...SQSSubscriberOption) *SQSEventSubscriber {
	options := &sqsSubscriberOptions{
		workers:                        10,
		readers:                        1,
		cleaners:                       2,
		maxNumberOfMessages:            5,
		waitTimeSeconds:                15,
		visibilityTimeout:              30,
		sleepTimeAfterEmptyReceive:     time.Second,
		sleepTimeAfterError:            5 * time.Second,
		extendVisibilityTimeoutOnError: true,
		receiveCountRange:              3,
		visibilityTimeoutOffset:        30,
		maxVisibilityTimeout:           900,
		maxReceiveCount:                5,
	}

	for _, opt := range opts {
		opt(options)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &SQSEventSubscriber{
		client:   client,
		queueURL: queueURL,
		options:  options,
		logger:   logger.With(zap.String("queue_url", queueURL)),
	}
}

// Subscribe starts consuming the queue in background goroutines
func (s *SQSEventSubscriber) Subscribe(ctx context.Context, handler events.EventHandler) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSubscriberRunning
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.handler = handler
	s.inboundMessages = make(chan *sqsMessage, 10)
	s.outboundMessages = make(chan *sqsMessage, 10)
	s.cancel = cancel

	s.spawn(int(s.options.workers), func() { s.startWorker(ctx) })
	s.spawn(int(s.options.readers), func() { s.startReader(ctx) })
	s.spawn(int(s.options.cleaners), func() { s.startCleaner(ctx) })

	s.logger.Info("sqs subscriber started",
		zap.Int32("workers", s.options.workers),
		zap.Int("max_receive_count", s.options.maxReceiveCount),
	)

	return nil
}

// Close stops the readers and waits for in-flight messages to be released
func (s *SQSEventSubscriber) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mux.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mux.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.logger.Info("sqs subscriber stopped")
	return nil
}

func (s *SQSEventSubscriber) Name() string {
	return "sqs"
}

// Check verifies the queue is reachable with the configured credentials
func (s *SQSEventSubscriber) Check(ctx context.Context) error {
	_, err := s.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(s.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	return errors.Wrap(err, "sqs queue unreachable")
}

func (s *SQSEventSubscriber) spawn(n int, fn func()) {
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fn()
		}()
	}
}

func (s *SQSEventSubscriber) startWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.inboundMessages:
			s.handle(ctx, message)
		}
	}
}

func (s *SQSEventSubscriber) startReader(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := s.read(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("failed to read from queue", zap.Error(err))
				sleep(ctx, s.options.sleepTimeAfterError)
			}
		}
	}
}

func (s *SQSEventSubscriber) startCleaner(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.outboundMessages:
			if err := s.clean(ctx, message); err != nil {
				s.logger.Error("failed to release message",
					zap.String("message_id", aws.ToString(message.Message.MessageId)),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *SQSEventSubscriber) read(ctx context.Context) error {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.options.maxNumberOfMessages,
		WaitTimeSeconds:     s.options.waitTimeSeconds,
		VisibilityTimeout:   s.options.visibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameApproximateFirstReceiveTimestamp,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to receive message from SQS")
	}

	if len(output.Messages) == 0 {
		sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		return nil
	}

	for _, message := range output.Messages {
		event, err := decodeSQSBody(aws.ToString(message.Body))
		if err != nil {
			// Malformed bodies can never succeed, so they are dropped
			s.logger.Error("dropping malformed message",
				zap.String("message_id", aws.ToString(message.MessageId)),
				zap.Error(err),
			)
			if err := s.delete(ctx, message); err != nil {
				s.logger.Error("failed to delete malformed message", zap.Error(err))
			}
			continue
		}

		event.Metadata.Set(SQSMessageIDKey, aws.ToString(message.MessageId))
		if message.ReceiptHandle != nil {
			event.Metadata.Set(SQSReceiptHandleKey, *message.ReceiptHandle)
		}
		event.Metadata.Set(events.AttemptKey, strconv.Itoa(receiveCount(message)))

		select {
		case s.inboundMessages <- &sqsMessage{Message: message, Event: event}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (s *SQSEventSubscriber) handle(ctx context.Context, message *sqsMessage) {
	s.mux.RLock()
	handler := s.handler
	s.mux.RUnlock()

	if handler == nil {
		message.Err = errors.New("no handler configured")
	} else {
		message.Err = handler.Handle(ctx, message.Event)
	}

	select {
	case s.outboundMessages <- message:
	case <-ctx.Done():
	}
}

func (s *SQSEventSubscriber) clean(ctx context.Context, message *sqsMessage) error {
	if message.Err == nil {
		return s.delete(ctx, message.Message)
	}

	count := receiveCount(message.Message)
	if s.options.maxReceiveCount > 0 && count >= s.options.maxReceiveCount {
		s.logger.Error("giving up on message after max receives",
			zap.String("topic", message.Event.Topic.String()),
			zap.String("aggregate_id", message.Event.AggregateID),
			zap.Int("receive_count", count),
			zap.Error(message.Err),
		)
		return s.delete(ctx, message.Message)
	}

	s.logger.Warn("message handling failed, will be redelivered",
		zap.String("topic", message.Event.Topic.String()),
		zap.String("aggregate_id", message.Event.AggregateID),
		zap.Int("receive_count", count),
		zap.Error(message.Err),
	)

	if !s.options.extendVisibilityTimeoutOnError {
		return nil
	}

	visibilityTimeout := s.options.visibilityTimeout
	visibilityTimeout += (int32(count) / s.options.receiveCountRange) * s.options.visibilityTimeoutOffset
	if visibilityTimeout > s.options.maxVisibilityTimeout {
		visibilityTimeout = s.options.maxVisibilityTimeout
	}

	_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(s.queueURL),
		ReceiptHandle:     message.Message.ReceiptHandle,
		VisibilityTimeout: visibilityTimeout,
	})
	return errors.Wrap(err, "failed to extend visibility timeout")
}

func (s *SQSEventSubscriber) delete(ctx context.Context, message types.Message) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	return errors.Wrap(err, "failed to delete message from SQS")
}

func decodeSQSBody(body string) (*events.Event, error) {
	var notification snsNotification
	if err := json.Unmarshal([]byte(body), &notification); err == nil && notification.Type == "Notification" {
		body = notification.Message
	}

	event, err := events.FromJSON([]byte(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode event envelope")
	}
	return event, nil
}

func receiveCount(message types.Message) int {
	count, err := strconv.Atoi(message.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || count < 1 {
		return 1
	}
	return count
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
