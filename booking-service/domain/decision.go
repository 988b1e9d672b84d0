package domain

import (
	"github.com/pkg/errors"
)

// Decider is the confirmation rule of the saga. It must be deterministic and
// free of I/O: it only looks at the booking it is given.
type Decider func(booking *Booking) BookingStatus

// Decision rule names accepted by NewDecider
const (
	DecisionParity     = "parity"
	DecisionConfirmAll = "confirm_all"
)

// ParityDecider confirms odd identifiers and cancels even ones
func ParityDecider(booking *Booking) BookingStatus {
	if booking.ID%2 == 0 {
		return BookingStatusCancelled
	}
	return BookingStatusConfirmed
}

// ConfirmAllDecider confirms every booking
func ConfirmAllDecider(_ *Booking) BookingStatus {
	return BookingStatusConfirmed
}

// NewDecider resolves a configured decision rule
func NewDecider(name string) (Decider, error) {
	switch name {
	case "", DecisionParity:
		return ParityDecider, nil
	case DecisionConfirmAll:
		return ConfirmAllDecider, nil
	default:
		return nil, errors.Errorf("unknown decision rule %q", name)
	}
}
