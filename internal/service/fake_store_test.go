package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/internal/repository"
)

// fakeStore is a Store whose behaviour is set per test through the Fn
// fields. Unset functions panic, so a test only exercises what it wires.
type fakeStore struct {
	getHabitFn     func(ctx context.Context, userID, habitID int64) (*model.Habit, error)
	recordExistsFn func(ctx context.Context, userID, habitID int64, date time.Time) (bool, error)
	createRecordFn func(ctx context.Context, userID, habitID int64, date time.Time) error
	deleteRecordFn func(ctx context.Context, userID, habitID int64, date time.Time) error
	listDatesFn    func(ctx context.Context, userID, habitID int64) ([]time.Time, error)
	listBetweenFn  func(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error)
}

func (f *fakeStore) GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error) {
	return f.getHabitFn(ctx, userID, habitID)
}

func (f *fakeStore) RecordExists(ctx context.Context, userID, habitID int64, date time.Time) (bool, error) {
	return f.recordExistsFn(ctx, userID, habitID, date)
}

func (f *fakeStore) CreateRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	return f.createRecordFn(ctx, userID, habitID, date)
}

func (f *fakeStore) DeleteRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	return f.deleteRecordFn(ctx, userID, habitID, date)
}

func (f *fakeStore) ListRecordDates(ctx context.Context, userID, habitID int64) ([]time.Time, error) {
	return f.listDatesFn(ctx, userID, habitID)
}

func (f *fakeStore) ListRecordDatesBetween(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error) {
	return f.listBetweenFn(ctx, userID, habitID, from, to)
}

func ownedHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error) {
	return &model.Habit{ID: habitID, UserID: userID, Name: "h", TargetPerWeek: 7}, nil
}

func createTestStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "habits.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
