package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/internal/repository"
	"habittracker/internal/repository/repotest"
)

func createTestStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "habits.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	repotest.RunStoreSuite(t, createTestStore)
}

func TestOpenSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.db")
	ctx := context.Background()

	s, err := repository.OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	h := &model.Habit{UserID: 1, Name: "persist", TargetPerWeek: 3, Created: calendar.Date(2024, 1, 1)}
	require.NoError(t, s.CreateHabit(ctx, h))
	require.NoError(t, s.CreateRecord(ctx, 1, h.ID, calendar.Date(2024, 1, 2)))
	require.NoError(t, s.Close())

	s, err = repository.OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	dates, err := s.ListRecordDates(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-01-02", calendar.Format(dates[0]))
}

func TestSQLiteStore_ClosedIsNotNotFound(t *testing.T) {
	s, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "habits.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.GetHabit(context.Background(), 1, 1)
	require.Error(t, err)
	assert.False(t, apperr.IsNotFound(err))
}
