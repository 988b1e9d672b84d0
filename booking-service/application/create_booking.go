package application

import (
	"context"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const bookingStartedMessage = "Booking process started"

// CreateBookingCommand represents the command to create a booking
type CreateBookingCommand struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateBookingResponse represents the response after creating a booking
type CreateBookingResponse struct {
	Message   string `json:"message"`
	BookingID int64  `json:"booking_id"`
}

// CreateBooking use case. It persists a pending booking and starts its saga.
type CreateBooking struct {
	bookingRepository domain.BookingRepository
	dispatcher        domain.SagaDispatcher
}

// NewCreateBooking creates a new CreateBooking use case
func NewCreateBooking(bookingRepository domain.BookingRepository, dispatcher domain.SagaDispatcher) *CreateBooking {
	return &CreateBooking{
		bookingRepository: bookingRepository,
		dispatcher:        dispatcher,
	}
}

// Execute creates the booking. Once the booking is stored the call succeeds even
// if the saga could not be dispatched; the sweeper picks those up later.
func (uc *CreateBooking) Execute(ctx context.Context, cmd *CreateBookingCommand) (*CreateBookingResponse, error) {
	details := domain.BookingDetails{
		Name:  cmd.Name,
		Email: cmd.Email,
		Phone: cmd.Phone,
	}.Normalize()

	if err := details.Validate(); err != nil {
		return nil, err
	}

	id, err := uc.bookingRepository.Create(ctx, details)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create booking")
	}

	logger := logging.FromContext(ctx).With(zap.Int64("booking_id", id))

	if err := uc.dispatcher.Dispatch(ctx, id); err != nil {
		logger.Warn("booking stored but saga dispatch failed, left for recovery", zap.Error(err))
	} else {
		logger.Info("booking created and saga dispatched")
	}

	return &CreateBookingResponse{
		Message:   bookingStartedMessage,
		BookingID: id,
	}, nil
}
