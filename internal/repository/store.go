package repository

import (
	"context"
	"time"

	"habittracker/internal/model"
)

// HabitStore persists habit metadata. Every accessor is scoped by the
// owning user; a habit that exists but belongs to someone else is reported
// as apperr.ErrNotFound.
type HabitStore interface {
	CreateHabit(ctx context.Context, h *model.Habit) error
	GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]model.Habit, error)
	// DeleteHabit removes the habit and, in the same transaction, all of its
	// completion records.
	DeleteHabit(ctx context.Context, userID, habitID int64) error
}

// RecordStore persists completion facts. Uniqueness of (habit, date) is
// enforced by the storage engine itself, so CreateRecord is the arbiter
// between concurrent writers.
type RecordStore interface {
	RecordExists(ctx context.Context, userID, habitID int64, date time.Time) (bool, error)
	// CreateRecord fails with apperr.ErrConflict when the record already
	// exists and apperr.ErrNotFound when the habit is absent or not owned.
	CreateRecord(ctx context.Context, userID, habitID int64, date time.Time) error
	// DeleteRecord fails with apperr.ErrNotFound when there is nothing to delete.
	DeleteRecord(ctx context.Context, userID, habitID int64, date time.Time) error
	// ListRecordDates returns distinct days in ascending order.
	ListRecordDates(ctx context.Context, userID, habitID int64) ([]time.Time, error)
	// ListRecordDatesBetween is ListRecordDates limited to [from, to].
	ListRecordDatesBetween(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error)
}

// Store is a complete persistence backend.
type Store interface {
	HabitStore
	RecordStore
	Ping(ctx context.Context) error
	Close() error
}
