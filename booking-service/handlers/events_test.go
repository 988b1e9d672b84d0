package handlers

import (
	"context"
	"testing"

	"github.com/draftea/booking-system/booking-service/application"
	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/booking-service/mocks"
	"github.com/draftea/booking-system/shared/events"
	"github.com/draftea/booking-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBookingEventHandlers_HandleSagaRequested(t *testing.T) {
	tests := []struct {
		name          string
		payload       interface{}
		setupMocks    func(*mocks.MockBookingRepository, *mocks.MockNotifier)
		expectedError bool
	}{
		{
			name:    "runs the saga",
			payload: map[string]int64{"booking_id": 1},
			setupMocks: func(repo *mocks.MockBookingRepository, notifier *mocks.MockNotifier) {
				repo.EXPECT().FindByID(mock.Anything, int64(1)).
					Return(&domain.Booking{ID: 1, Status: domain.BookingStatusPending}, nil).Once()
				repo.EXPECT().Transition(mock.Anything, int64(1), domain.BookingStatusPending, domain.BookingStatusConfirmed).
					Return(true, nil).Once()
				notifier.EXPECT().NotifyDecision(mock.Anything, mock.Anything, domain.BookingStatusConfirmed).Return(nil).Once()
			},
		},
		{
			name:    "store unavailable is redelivered",
			payload: map[string]int64{"booking_id": 2},
			setupMocks: func(repo *mocks.MockBookingRepository, _ *mocks.MockNotifier) {
				repo.EXPECT().FindByID(mock.Anything, int64(2)).
					Return(nil, domain.NewPersistenceError("find booking", errors.New("connection refused"))).Once()
			},
			expectedError: true,
		},
		{
			name:       "missing booking id is dropped",
			payload:    map[string]string{"reference": "abc"},
			setupMocks: func(*mocks.MockBookingRepository, *mocks.MockNotifier) {},
		},
		{
			name:       "non numeric booking id is dropped",
			payload:    map[string]string{"booking_id": "abc"},
			setupMocks: func(*mocks.MockBookingRepository, *mocks.MockNotifier) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockBookingRepository(t)
			notifier := mocks.NewMockNotifier(t)
			tt.setupMocks(repo, notifier)

			processSaga := application.NewProcessBookingSaga(repo, domain.ParityDecider, notifier, application.RetryPolicy{MaxTries: 1})
			router := saga.NewEventRouter(nil)
			NewBookingEventHandlers(processSaga).Register(router)

			event, err := events.NewEvent("1", events.BookingSagaRequestedEvent, tt.payload)
			require.NoError(t, err)

			err = router.Handle(context.Background(), event)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
