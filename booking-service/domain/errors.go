package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidBooking  = errors.New("invalid booking")
	ErrInvalidStatus   = errors.New("invalid booking status")
)

// PersistenceError reports that the booking store was unreachable or rejected a write
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DispatchError reports that a saga request could not be handed to the broker
type DispatchError struct {
	BookingID int64
	Err       error
}

func NewDispatchError(bookingID int64, err error) *DispatchError {
	return &DispatchError{BookingID: bookingID, Err: err}
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch saga for booking %d: %v", e.BookingID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is or wraps a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsDispatchError reports whether err is or wraps a DispatchError
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}
