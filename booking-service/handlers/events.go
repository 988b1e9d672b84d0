package handlers

import (
	"context"

	"github.com/draftea/booking-system/booking-service/application"
	"github.com/draftea/booking-system/booking-service/infrastructure"
	"github.com/draftea/booking-system/shared/events"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/draftea/booking-system/shared/saga"
	"go.uber.org/zap"
)

// BookingEventHandlers contains the broker task handlers of the booking service
type BookingEventHandlers struct {
	processSaga *application.ProcessBookingSaga
}

// NewBookingEventHandlers creates new booking event handlers
func NewBookingEventHandlers(processSaga *application.ProcessBookingSaga) *BookingEventHandlers {
	return &BookingEventHandlers{processSaga: processSaga}
}

// Register binds every handler to its topic on the router
func (h *BookingEventHandlers) Register(router *saga.EventRouter) {
	router.RegisterHandlerFunc(events.BookingSagaRequestedEvent, h.HandleSagaRequested)
}

// Topics returns the topics consumed by the booking service
func (h *BookingEventHandlers) Topics() []events.Topic {
	return []events.Topic{events.BookingSagaRequestedEvent}
}

// HandleSagaRequested runs the booking saga for a booking.saga.requested task
func (h *BookingEventHandlers) HandleSagaRequested(ctx context.Context, event *events.Event) error {
	attempt, _ := event.Metadata.Get(events.AttemptKey)
	logger := logging.FromContext(ctx).With(zap.String("attempt", attempt))

	var payload infrastructure.SagaRequestedPayload
	if err := event.UnmarshalPayload(&payload); err != nil || payload.BookingID <= 0 {
		// A malformed task can never succeed, so it is acknowledged and dropped
		logger.Error("discarding malformed saga task", zap.ByteString("payload", event.Payload), zap.Error(err))
		return nil
	}

	ctx = logging.WithLogger(ctx, logger)
	_, err := h.processSaga.Execute(ctx, &application.ProcessBookingSagaCommand{BookingID: payload.BookingID})
	return err
}
