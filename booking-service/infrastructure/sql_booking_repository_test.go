package infrastructure

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var johnDoe = domain.BookingDetails{Name: "John Doe", Email: "john.doe@example.com", Phone: "1234567890"}

func newMockRepository(t *testing.T) (*SQLBookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLBookingRepository(sqlx.NewDb(db, DriverPostgres)), mock
}

func newSQLiteRepository(t *testing.T) *SQLBookingRepository {
	t.Helper()
	db, err := OpenDatabase(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "bookings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLBookingRepository(db)
}

func TestSQLBookingRepository_Create_Postgres(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO bookings \(name, email, phone, status, created_at, updated_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\) RETURNING id`).
		WithArgs("John Doe", "john.doe@example.com", "1234567890", "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	id, err := repo.Create(context.Background(), johnDoe)

	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBookingRepository_Create_StoreUnavailable(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Create(context.Background(), johnDoe)

	assert.True(t, domain.IsPersistenceError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBookingRepository_FindByID_Postgres(t *testing.T) {
	repo, mock := newMockRepository(t)
	createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, email, phone, status, created_at, updated_at\s+FROM bookings\s+WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "status", "created_at", "updated_at"}).
			AddRow(int64(1), "John Doe", "john.doe@example.com", "1234567890", "confirmed", createdAt, createdAt))

	booking, err := repo.FindByID(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, createdAt, booking.Timestamps.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBookingRepository_FindByID_CorruptStatus(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "status", "created_at", "updated_at"}).
			AddRow(int64(1), "John Doe", "john.doe@example.com", "1234567890", "archived", now, now))

	_, err := repo.FindByID(context.Background(), 1)

	assert.True(t, errors.Is(err, domain.ErrInvalidStatus))
}

func TestSQLBookingRepository_Transition_Postgres(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "applied", affected: 1, expected: true},
		{name: "lost race", affected: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectExec(`UPDATE bookings\s+SET status = \$1, updated_at = \$2\s+WHERE id = \$3 AND status = \$4`).
				WithArgs("confirmed", sqlmock.AnyArg(), int64(1), "pending").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.Transition(context.Background(), 1, domain.BookingStatusPending, domain.BookingStatusConfirmed)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLBookingRepository_Transition_RejectsInvalidTransition(t *testing.T) {
	repo, mock := newMockRepository(t)

	ok, err := repo.Transition(context.Background(), 1, domain.BookingStatusConfirmed, domain.BookingStatusCancelled)

	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrInvalidStatus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBookingRepository_SQLite_Lifecycle(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, johnDoe)
	require.NoError(t, err)
	second, err := repo.Create(ctx, johnDoe)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	booking, err := repo.FindByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, "John Doe", booking.Name)
	assert.False(t, booking.Timestamps.CreatedAt.IsZero())

	ok, err := repo.Transition(ctx, first, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transition(ctx, first, domain.BookingStatusPending, domain.BookingStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	booking, err = repo.FindByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)

	pending, err := repo.ListByStatus(ctx, domain.BookingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second, pending[0].ID)

	_, err = repo.FindByID(ctx, 999)
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

func TestSQLBookingRepository_SQLite_ConcurrentTransition(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, johnDoe)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		to := domain.BookingStatusConfirmed
		if i%2 == 0 {
			to = domain.BookingStatusCancelled
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Transition(ctx, id, domain.BookingStatusPending, to)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	booking, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, booking.Status.IsTerminal())
}
