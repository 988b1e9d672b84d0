package infrastructure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/events"
)

var _ domain.SagaDispatcher = (*EventSagaDispatcher)(nil)

// SagaRequestedPayload is the message body of a saga task. It carries only the
// booking identifier; the worker reads everything else from the store.
type SagaRequestedPayload struct {
	BookingID int64 `json:"booking_id"`
}

// SagaDeduplicationKey groups repeated dispatches of the same booking
func SagaDeduplicationKey(bookingID int64) string {
	return fmt.Sprintf("booking-saga-%d", bookingID)
}

// EventSagaDispatcher hands saga tasks to the configured broker
type EventSagaDispatcher struct {
	publisher events.Publisher
}

func NewEventSagaDispatcher(publisher events.Publisher) *EventSagaDispatcher {
	return &EventSagaDispatcher{publisher: publisher}
}

// Dispatch enqueues a saga task for the booking
func (d *EventSagaDispatcher) Dispatch(ctx context.Context, bookingID int64) error {
	event, err := events.NewEvent(
		strconv.FormatInt(bookingID, 10),
		events.BookingSagaRequestedEvent,
		SagaRequestedPayload{BookingID: bookingID},
	)
	if err != nil {
		return domain.NewDispatchError(bookingID, err)
	}
	event.WithMetadata(events.DeduplicationKey, SagaDeduplicationKey(bookingID))

	if err := d.publisher.Publish(ctx, event); err != nil {
		return domain.NewDispatchError(bookingID, err)
	}

	return nil
}
