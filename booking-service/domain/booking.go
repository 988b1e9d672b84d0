package domain

import (
	"context"
	"regexp"
	"strings"

	"github.com/draftea/booking-system/shared/models"
	"github.com/pkg/errors"
)

// BookingStatus represents the saga state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// NewBookingStatus parses a persisted or user supplied status
func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	return s, nil
}

// IsValid reports whether the status is one of the enumerated values
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the saga has finished for this status
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled
}

func (s BookingStatus) String() string {
	return string(s)
}

// CanTransition reports whether from -> to is an allowed saga transition.
// Only pending bookings move, and only to a terminal status.
func CanTransition(from, to BookingStatus) bool {
	return from == BookingStatusPending && to.IsTerminal()
}

// Booking aggregate root
type Booking struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Status     BookingStatus
	Timestamps models.Timestamps
}

// IsPending reports whether the booking still awaits a saga decision
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

const minNameLength = 2

// BookingDetails is the contact data a booking is created from
type BookingDetails struct {
	Name  string
	Email string
	Phone string
}

// Normalize trims surrounding whitespace from every field
func (d BookingDetails) Normalize() BookingDetails {
	return BookingDetails{
		Name:  strings.TrimSpace(d.Name),
		Email: strings.TrimSpace(d.Email),
		Phone: strings.TrimSpace(d.Phone),
	}
}

// Validate checks the creation rules for a new booking
func (d BookingDetails) Validate() error {
	if len([]rune(d.Name)) < minNameLength {
		return errors.Wrap(ErrInvalidBooking, "name must be at least 2 characters")
	}

	if !emailPattern.MatchString(d.Email) {
		return errors.Wrap(ErrInvalidBooking, "email is not valid")
	}

	if d.Phone == "" {
		return errors.Wrap(ErrInvalidBooking, "phone is required")
	}

	return nil
}

// BookingRepository is the durable store of bookings and the single source of saga state
type BookingRepository interface {
	// Create inserts a pending booking and returns its identifier
	Create(ctx context.Context, details BookingDetails) (int64, error)
	FindByID(ctx context.Context, id int64) (*Booking, error)
	// Transition atomically sets status to `to` only if the stored status equals `from`
	Transition(ctx context.Context, id int64, from, to BookingStatus) (bool, error)
	ListByStatus(ctx context.Context, status BookingStatus) ([]*Booking, error)
}

// SagaDispatcher enqueues the saga for a booking on the broker
type SagaDispatcher interface {
	Dispatch(ctx context.Context, bookingID int64) error
}

// Notifier performs the side effect tied to a saga decision
type Notifier interface {
	NotifyDecision(ctx context.Context, booking *Booking, status BookingStatus) error
}
