package infrastructure

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/draftea/booking-system/shared/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSagaEvent(t *testing.T, bookingID string) *events.Event {
	t.Helper()
	event, err := events.NewEvent(bookingID, events.BookingSagaRequestedEvent, map[string]string{"booking_id": bookingID})
	require.NoError(t, err)
	return event
}

func TestMemoryEventBus_DeliversEvents(t *testing.T) {
	bus := NewMemoryEventBus(2, 3, 10, nil)
	defer bus.Close()

	var mu sync.Mutex
	received := map[string]int{}
	err := bus.Subscribe(context.Background(), events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received[event.AggregateID]++
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), newSagaEvent(t, "1"), newSagaEvent(t, "2")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received["1"] == 1 && received["2"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryEventBus_RetriesUntilMaxAttempts(t *testing.T) {
	bus := NewMemoryEventBus(1, 3, 10, nil)
	defer bus.Close()

	var calls atomic.Int32
	var lastAttempt atomic.Value
	err := bus.Subscribe(context.Background(), events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		calls.Add(1)
		attempt, _ := event.Metadata.Get(events.AttemptKey)
		lastAttempt.Store(attempt)
		return errors.New("store unavailable")
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), newSagaEvent(t, "1")))

	assert.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "3", lastAttempt.Load())
}

func TestMemoryEventBus_BuffersWithoutSubscriber(t *testing.T) {
	bus := NewMemoryEventBus(1, 1, 10, nil)

	require.NoError(t, bus.Publish(context.Background(), newSagaEvent(t, "1")))
	assert.Equal(t, 1, bus.Pending())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), newSagaEvent(t, "2")), ErrBusClosed)
}

func TestMemoryEventBus_SubscribeTwice(t *testing.T) {
	bus := NewMemoryEventBus(1, 1, 10, nil)
	defer bus.Close()

	handler := events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error { return nil })
	require.NoError(t, bus.Subscribe(context.Background(), handler))
	assert.ErrorIs(t, bus.Subscribe(context.Background(), handler), ErrSubscriberRunning)
}

func TestMemoryEventBus_FailingEventsDoNotStallFullQueue(t *testing.T) {
	bus := NewMemoryEventBus(1, 3, 1, nil)
	defer bus.Close()

	var calls atomic.Int32
	inFlight := make(chan struct{})
	release := make(chan struct{})
	err := bus.Subscribe(context.Background(), events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		if calls.Add(1) == 1 {
			close(inFlight)
			<-release
		}
		return errors.New("store unavailable")
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), newSagaEvent(t, "1")))
	<-inFlight
	require.NoError(t, bus.Publish(context.Background(), newSagaEvent(t, "2")))
	close(release)

	assert.Eventually(t, func() bool { return calls.Load() == 6 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, bus.Publish(ctx, newSagaEvent(t, "3")))
}

func TestMemoryEventBus_Check(t *testing.T) {
	bus := NewMemoryEventBus(1, 1, 10, nil)

	assert.Equal(t, "memory-broker", bus.Name())
	assert.NoError(t, bus.Check(context.Background()))

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Check(context.Background()), ErrBusClosed)
}
