package infrastructure

import (
	"context"
	"strconv"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*EventNotifier)(nil)
	_ domain.Notifier = (MultiNotifier)(nil)
)

// LogNotifier records saga decisions in the service log
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDecision(_ context.Context, booking *domain.Booking, status domain.BookingStatus) error {
	n.logger.Info("booking saga decided",
		zap.Int64("booking_id", booking.ID),
		zap.String("email", booking.Email),
		zap.String("status", status.String()),
	)
	return nil
}

// BookingDecidedPayload is published on booking.confirmed and booking.cancelled
type BookingDecidedPayload struct {
	BookingID int64  `json:"booking_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

// EventNotifier publishes the saga outcome so other services can react to it
type EventNotifier struct {
	publisher events.Publisher
}

func NewEventNotifier(publisher events.Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (n *EventNotifier) NotifyDecision(ctx context.Context, booking *domain.Booking, status domain.BookingStatus) error {
	topic := events.BookingConfirmedEvent
	if status == domain.BookingStatusCancelled {
		topic = events.BookingCancelledEvent
	}

	event, err := events.NewEvent(strconv.FormatInt(booking.ID, 10), topic, BookingDecidedPayload{
		BookingID: booking.ID,
		Name:      booking.Name,
		Email:     booking.Email,
		Status:    status.String(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to build outcome event")
	}

	return errors.Wrap(n.publisher.Publish(ctx, event), "failed to publish outcome event")
}

// MultiNotifier fans a decision out to every notifier and joins their errors
type MultiNotifier []domain.Notifier

func (m MultiNotifier) NotifyDecision(ctx context.Context, booking *domain.Booking, status domain.BookingStatus) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyDecision(ctx, booking, status); err != nil {
			errs = append(errs, err)
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Wrapf(errs[0], "%d notifiers failed", len(errs))
	}
}
