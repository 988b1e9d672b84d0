package saga

import (
	"context"
	"sync"

	"github.com/draftea/booking-system/shared/events"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EventRouter routes events received from a broker to the handlers registered
// for their topic. Handler errors are returned so the broker can redeliver.
type EventRouter struct {
	mu       sync.RWMutex
	handlers map[events.Topic][]events.EventHandler
	logger   *zap.Logger
}

func NewEventRouter(logger *zap.Logger) *EventRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRouter{
		handlers: make(map[events.Topic][]events.EventHandler),
		logger:   logger,
	}
}

// RegisterHandler registers an event handler for a topic pattern
func (r *EventRouter) RegisterHandler(topic events.Topic, handler events.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = append(r.handlers[topic], handler)
}

// RegisterHandlerFunc registers a function for a topic pattern
func (r *EventRouter) RegisterHandlerFunc(topic events.Topic, fn func(ctx context.Context, event *events.Event) error) {
	r.RegisterHandler(topic, events.EventHandlerFunc(fn))
}

// Topics returns the registered topic patterns
func (r *EventRouter) Topics() []events.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]events.Topic, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// HandlerID names the router in logs
func (r *EventRouter) HandlerID() string {
	return "booking-saga-event-router"
}

// Handle dispatches the event to every handler whose pattern matches its topic
func (r *EventRouter) Handle(ctx context.Context, event *events.Event) error {
	logger := r.logger.With(
		zap.String("handler_id", r.HandlerID()),
		zap.String("event_id", event.ID.String()),
		zap.String("topic", event.Topic.String()),
	)
	ctx = logging.WithLogger(ctx, logger)

	matched := r.match(event.Topic)
	if len(matched) == 0 {
		logger.Debug("no handlers registered for topic")
		return nil
	}

	var errs []error
	for _, handler := range matched {
		if err := handler.Handle(ctx, event); err != nil {
			logger.Warn("handler failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}
	if len(errs) > 1 {
		return errors.Wrapf(errs[0], "%d handlers failed for %s", len(errs), event.Topic)
	}
	return nil
}

func (r *EventRouter) match(topic events.Topic) []events.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []events.EventHandler
	for pattern, handlers := range r.handlers {
		if topic.Matches(pattern) {
			matched = append(matched, handlers...)
		}
	}
	return matched
}
