package application

import (
	"context"
	"time"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/pkg/errors"
)

// GetBookingQuery represents the query to get a booking
type GetBookingQuery struct {
	BookingID int64 `json:"booking_id"`
}

// GetBookingResponse represents the response for getting a booking
type GetBookingResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// GetBooking use case
type GetBooking struct {
	bookingRepository domain.BookingRepository
}

// NewGetBooking creates a new GetBooking use case
func NewGetBooking(bookingRepository domain.BookingRepository) *GetBooking {
	return &GetBooking{
		bookingRepository: bookingRepository,
	}
}

// Execute executes the get booking use case
func (uc *GetBooking) Execute(ctx context.Context, query *GetBookingQuery) (*GetBookingResponse, error) {
	booking, err := uc.bookingRepository.FindByID(ctx, query.BookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find booking")
	}

	return &GetBookingResponse{
		ID:        booking.ID,
		Name:      booking.Name,
		Email:     booking.Email,
		Phone:     booking.Phone,
		Status:    booking.Status.String(),
		CreatedAt: booking.Timestamps.CreatedAt.Format(time.RFC3339),
		UpdatedAt: booking.Timestamps.UpdatedAt.Format(time.RFC3339),
	}, nil
}
