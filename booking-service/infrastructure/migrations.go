package infrastructure

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var schemas = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS bookings (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			phone      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'confirmed', 'cancelled')),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_created_at ON bookings (status, created_at)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS bookings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			phone      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'confirmed', 'cancelled')),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_created_at ON bookings (status, created_at)`,
	},
}

// Migrate creates the bookings table and its indexes if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements, ok := schemas[db.DriverName()]
	if !ok {
		return errors.Errorf("unsupported database driver %q", db.DriverName())
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate bookings schema")
		}
	}

	return nil
}
