package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ domain.BookingRepository = (*SQLBookingRepository)(nil)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLBookingRepository implements BookingRepository on PostgreSQL or SQLite
type SQLBookingRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLBookingRepository creates a new SQLBookingRepository
func NewSQLBookingRepository(db *sqlx.DB) *SQLBookingRepository {
	return &SQLBookingRepository{db: db, now: time.Now}
}

// WithClock overrides the clock used for created_at and updated_at
func (r *SQLBookingRepository) WithClock(now func() time.Time) *SQLBookingRepository {
	r.now = now
	return r
}

// sqlBooking represents booking in database
type sqlBooking struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Create inserts a pending booking and returns the identifier assigned by the database
func (r *SQLBookingRepository) Create(ctx context.Context, details domain.BookingDetails) (int64, error) {
	if details.Name == "" {
		return 0, domain.NewPersistenceError("create booking", errors.New("name must not be empty"))
	}

	now := r.now().UTC()
	args := []interface{}{
		details.Name, details.Email, details.Phone,
		string(domain.BookingStatusPending), now, now,
	}

	query := `
		INSERT INTO bookings (name, email, phone, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if r.db.DriverName() == DriverPostgres {
		var id int64
		err := r.db.QueryRowxContext(ctx, r.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return 0, domain.NewPersistenceError("create booking", err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, domain.NewPersistenceError("create booking", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.NewPersistenceError("create booking", err)
	}

	return id, nil
}

// FindByID finds a booking by ID
func (r *SQLBookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, phone, status, created_at, updated_at
		FROM bookings
		WHERE id = ?`)

	var row sqlBooking
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("find booking", err)
	}

	return r.toDomain(&row)
}

// Transition moves a booking from one status to another in a single conditional
// update. It reports false when the stored status was no longer `from`.
func (r *SQLBookingRepository) Transition(ctx context.Context, id int64, from, to domain.BookingStatus) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, errors.Wrapf(domain.ErrInvalidStatus, "transition %s -> %s", from, to)
	}

	query := r.db.Rebind(`
		UPDATE bookings
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`)

	res, err := r.db.ExecContext(ctx, query, string(to), r.now().UTC(), id, string(from))
	if err != nil {
		return false, domain.NewPersistenceError("transition booking", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewPersistenceError("transition booking", err)
	}

	return affected == 1, nil
}

// ListByStatus returns the bookings in a status ordered by id
func (r *SQLBookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, phone, status, created_at, updated_at
		FROM bookings
		WHERE status = ?
		ORDER BY id`)

	var rows []sqlBooking
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, domain.NewPersistenceError("list bookings", err)
	}

	bookings := make([]*domain.Booking, 0, len(rows))
	for i := range rows {
		booking, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// Ping checks the database connection
func (r *SQLBookingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// toDomain converts database model to domain booking
func (r *SQLBookingRepository) toDomain(row *sqlBooking) (*domain.Booking, error) {
	status, err := domain.NewBookingStatus(row.Status)
	if err != nil {
		return nil, errors.Wrapf(err, "booking %d", row.ID)
	}

	return &domain.Booking{
		ID:     row.ID,
		Name:   row.Name,
		Email:  row.Email,
		Phone:  row.Phone,
		Status: status,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
	}, nil
}
