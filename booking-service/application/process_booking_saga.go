package application

import (
	"context"
	"time"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/draftea/booking-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SagaOutcome describes what a single saga execution did
type SagaOutcome string

const (
	SagaOutcomeConfirmed  SagaOutcome = "confirmed"
	SagaOutcomeCancelled  SagaOutcome = "cancelled"
	SagaOutcomeNotPending SagaOutcome = "not_pending"
	SagaOutcomeLostRace   SagaOutcome = "lost_race"
	SagaOutcomeNotFound   SagaOutcome = "not_found"
	SagaOutcomeFailed     SagaOutcome = "failed"
)

// ProcessBookingSagaCommand carries only the booking identifier; everything
// else is read from the store
type ProcessBookingSagaCommand struct {
	BookingID int64 `json:"booking_id"`
}

type ProcessBookingSagaResult struct {
	BookingID int64
	Outcome   SagaOutcome
	Status    domain.BookingStatus
}

// ProcessBookingSaga moves a pending booking to its decided terminal status.
// Running it any number of times for the same booking changes the status at
// most once and notifies at most once per winning transition.
type ProcessBookingSaga struct {
	bookingRepository domain.BookingRepository
	decide            domain.Decider
	notifier          domain.Notifier
	retry             RetryPolicy
}

// NewProcessBookingSaga creates a new ProcessBookingSaga use case
func NewProcessBookingSaga(
	bookingRepository domain.BookingRepository,
	decide domain.Decider,
	notifier domain.Notifier,
	retry RetryPolicy,
) *ProcessBookingSaga {
	if decide == nil {
		decide = domain.ParityDecider
	}
	return &ProcessBookingSaga{
		bookingRepository: bookingRepository,
		decide:            decide,
		notifier:          notifier,
		retry:             retry,
	}
}

// Execute runs the saga for one booking. A returned error means the store
// could not be reached and the task should be redelivered.
func (uc *ProcessBookingSaga) Execute(ctx context.Context, cmd *ProcessBookingSagaCommand) (*ProcessBookingSagaResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.saga.process",
		trace.WithAttributes(attribute.Int64("booking.id", cmd.BookingID)),
	)
	defer span.End()

	logger := logging.FromContext(ctx).With(zap.Int64("booking_id", cmd.BookingID))

	result, err := uc.execute(ctx, logger, cmd.BookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.recordOutcome(ctx, SagaOutcomeFailed)
		return nil, err
	}

	span.SetAttributes(attribute.String("booking.saga.outcome", string(result.Outcome)))
	uc.recordOutcome(ctx, result.Outcome)
	return result, nil
}

func (uc *ProcessBookingSaga) execute(ctx context.Context, logger *zap.Logger, id int64) (*ProcessBookingSagaResult, error) {
	booking, err := withStoreRetry(ctx, uc.retry, func() (*domain.Booking, error) {
		return uc.bookingRepository.FindByID(ctx, id)
	})
	if errors.Is(err, domain.ErrBookingNotFound) {
		logger.Warn("saga requested for unknown booking, discarding")
		return &ProcessBookingSagaResult{BookingID: id, Outcome: SagaOutcomeNotFound}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load booking")
	}

	if !booking.IsPending() {
		logger.Debug("booking already decided", zap.String("status", booking.Status.String()))
		return &ProcessBookingSagaResult{BookingID: id, Outcome: SagaOutcomeNotPending, Status: booking.Status}, nil
	}

	decided := uc.decide(booking)
	if !domain.CanTransition(domain.BookingStatusPending, decided) {
		return nil, errors.Wrapf(domain.ErrInvalidStatus, "decision rule returned %q", decided)
	}

	ok, err := withStoreRetry(ctx, uc.retry, func() (bool, error) {
		return uc.bookingRepository.Transition(ctx, id, domain.BookingStatusPending, decided)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to transition booking")
	}

	if !ok {
		logger.Info("booking decided by a concurrent worker")
		return &ProcessBookingSagaResult{BookingID: id, Outcome: SagaOutcomeLostRace}, nil
	}

	booking.Status = decided
	booking.Timestamps = booking.Timestamps.Touch(time.Now())
	logger.Info("booking saga completed", zap.String("status", decided.String()))

	if uc.notifier != nil {
		if err := uc.notifier.NotifyDecision(ctx, booking, decided); err != nil {
			logger.Error("failed to notify booking decision", zap.Error(err))
		}
	}

	outcome := SagaOutcomeConfirmed
	if decided == domain.BookingStatusCancelled {
		outcome = SagaOutcomeCancelled
	}

	return &ProcessBookingSagaResult{BookingID: id, Outcome: outcome, Status: decided}, nil
}

func (uc *ProcessBookingSaga) recordOutcome(ctx context.Context, outcome SagaOutcome) {
	telemetry.RecordCounter(ctx, "booking_saga_outcomes_total", "Booking saga executions by outcome", 1,
		attribute.String("outcome", string(outcome)),
	)
}
