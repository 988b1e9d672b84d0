package models

import (
	"time"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// GenerateUUID creates a new UUID
func GenerateUUID() ID {
	return ID(uuid.New().String())
}

// String returns string representation
func (id ID) String() string {
	return string(id)
}

// Timestamps represents creation and update times
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps creates new timestamps at the given instant
func NewTimestamps(now time.Time) Timestamps {
	now = now.UTC()
	return Timestamps{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch moves UpdatedAt forward to the given instant
func (t Timestamps) Touch(now time.Time) Timestamps {
	t.UpdatedAt = now.UTC()
	return t
}

// Age returns how long ago the entity was created relative to now
func (t Timestamps) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}
