package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/draftea/booking-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultSweepConcurrency = 10

// SweepOptions configures which bookings count as stale and how many are
// re-dispatched in parallel
type SweepOptions struct {
	StalenessThreshold time.Duration
	Concurrency        int
	Retry              RetryPolicy
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Scanned    int     `json:"scanned"`
	Stale      int     `json:"stale"`
	Dispatched int     `json:"dispatched"`
	Failed     int     `json:"failed"`
	BookingIDs []int64 `json:"booking_ids"`
}

// SweepPendingBookings re-dispatches the saga of bookings that stayed pending
// longer than the staleness threshold. It never changes a booking status, so
// any number of sweeps may overlap with each other and with the workers.
type SweepPendingBookings struct {
	bookingRepository domain.BookingRepository
	dispatcher        domain.SagaDispatcher
	opts              SweepOptions
	now               func() time.Time
}

// NewSweepPendingBookings creates a new SweepPendingBookings use case
func NewSweepPendingBookings(
	bookingRepository domain.BookingRepository,
	dispatcher domain.SagaDispatcher,
	opts SweepOptions,
) *SweepPendingBookings {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultSweepConcurrency
	}
	return &SweepPendingBookings{
		bookingRepository: bookingRepository,
		dispatcher:        dispatcher,
		opts:              opts,
		now:               time.Now,
	}
}

// WithClock overrides the clock used to measure staleness
func (uc *SweepPendingBookings) WithClock(now func() time.Time) *SweepPendingBookings {
	uc.now = now
	return uc
}

// Execute runs one sweep. Only a failure to list pending bookings is returned
// as an error; individual dispatch failures are counted in the result.
func (uc *SweepPendingBookings) Execute(ctx context.Context) (*SweepResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.sweep")
	defer span.End()

	logger := logging.FromContext(ctx)

	pending, err := withStoreRetry(ctx, uc.opts.Retry, func() ([]*domain.Booking, error) {
		return uc.bookingRepository.ListByStatus(ctx, domain.BookingStatusPending)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending bookings")
	}

	now := uc.now()
	result := &SweepResult{Scanned: len(pending), BookingIDs: []int64{}}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(uc.opts.Concurrency)

	for _, booking := range pending {
		if booking.Timestamps.Age(now) < uc.opts.StalenessThreshold {
			continue
		}
		result.Stale++

		id := booking.ID
		g.Go(func() error {
			err := uc.dispatcher.Dispatch(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				logger.Warn("failed to re-dispatch pending booking", zap.Int64("booking_id", id), zap.Error(err))
				return nil
			}
			result.Dispatched++
			result.BookingIDs = append(result.BookingIDs, id)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.BookingIDs, func(i, j int) bool { return result.BookingIDs[i] < result.BookingIDs[j] })

	span.SetAttributes(
		attribute.Int("sweep.stale", result.Stale),
		attribute.Int("sweep.dispatched", result.Dispatched),
	)
	telemetry.RecordCounter(ctx, "booking_sweep_redispatched_total", "Pending bookings re-dispatched by the sweeper", int64(result.Dispatched))
	telemetry.RecordGauge(ctx, "booking_pending_backlog", "Pending bookings seen by the last sweep", float64(result.Scanned))

	logger.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("stale", result.Stale),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}
