// Package repotest holds the behavioural contract every repository.Store
// backend must satisfy.
package repotest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/internal/repository"
)

// NewStoreFunc returns an empty store. Cleanup is the caller's business.
type NewStoreFunc func(t *testing.T) repository.Store

const (
	alice int64 = 1
	bob   int64 = 2
)

// RunStoreSuite runs the contract against fresh stores from newStore.
func RunStoreSuite(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		run  func(t *testing.T, s repository.Store)
	}{
		{"HabitRoundTrip", testHabitRoundTrip},
		{"ListHabitsOrderedAndScoped", testListHabitsOrderedAndScoped},
		{"ForeignHabitLooksAbsent", testForeignHabitLooksAbsent},
		{"RecordLifecycle", testRecordLifecycle},
		{"DuplicateRecordConflicts", testDuplicateRecordConflicts},
		{"RecordOnMissingHabit", testRecordOnMissingHabit},
		{"ForeignRecordsInvisible", testForeignRecordsInvisible},
		{"DatesAscendingAndWindowed", testDatesAscendingAndWindowed},
		{"DeleteCascadesRecords", testDeleteCascadesRecords},
		{"ConcurrentCreateSingleWinner", testConcurrentCreateSingleWinner},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newStore(t))
		})
	}
}

func day(d int) time.Time {
	return calendar.Date(2024, time.March, d)
}

func createHabit(t *testing.T, s repository.Store, userID int64, name string) *model.Habit {
	t.Helper()
	h := &model.Habit{UserID: userID, Name: name, TargetPerWeek: 5, Created: day(1)}
	require.NoError(t, s.CreateHabit(context.Background(), h))
	require.NotZero(t, h.ID)
	return h
}

func testHabitRoundTrip(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "Read 20 pages")

	got, err := s.GetHabit(ctx, alice, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)
	assert.Equal(t, alice, got.UserID)
	assert.Equal(t, "Read 20 pages", got.Name)
	assert.Equal(t, 5, got.TargetPerWeek)
	assert.True(t, day(1).Equal(got.Created), got.Created)
}

func testListHabitsOrderedAndScoped(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a1 := createHabit(t, s, alice, "first")
	createHabit(t, s, bob, "bob's")
	a2 := createHabit(t, s, alice, "second")

	habits, err := s.ListHabits(ctx, alice)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, a1.ID, habits[0].ID)
	assert.Equal(t, a2.ID, habits[1].ID)

	none, err := s.ListHabits(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testForeignHabitLooksAbsent(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "private")

	_, err := s.GetHabit(ctx, bob, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetHabit(ctx, alice, h.ID+1000)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, s.DeleteHabit(ctx, bob, h.ID), apperr.ErrNotFound)
	_, err = s.GetHabit(ctx, alice, h.ID)
	assert.NoError(t, err, "foreign delete must not touch the habit")
}

func testRecordLifecycle(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "walk")

	exists, err := s.RecordExists(ctx, alice, h.ID, day(5))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(5)))
	exists, err = s.RecordExists(ctx, alice, h.ID, day(5))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeleteRecord(ctx, alice, h.ID, day(5)))
	exists, err = s.RecordExists(ctx, alice, h.ID, day(5))
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.DeleteRecord(ctx, alice, h.ID, day(5)), apperr.ErrNotFound)
}

func testDuplicateRecordConflicts(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "stretch")

	require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(2)))
	assert.ErrorIs(t, s.CreateRecord(ctx, alice, h.ID, day(2)), apperr.ErrConflict)

	dates, err := s.ListRecordDates(ctx, alice, h.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 1)
}

func testRecordOnMissingHabit(t *testing.T, s repository.Store) {
	ctx := context.Background()
	assert.ErrorIs(t, s.CreateRecord(ctx, alice, 424242, day(1)), apperr.ErrNotFound)
}

func testForeignRecordsInvisible(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "meditate")
	require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(3)))

	assert.ErrorIs(t, s.CreateRecord(ctx, bob, h.ID, day(4)), apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecord(ctx, bob, h.ID, day(3)), apperr.ErrNotFound)

	exists, err := s.RecordExists(ctx, bob, h.ID, day(3))
	require.NoError(t, err)
	assert.False(t, exists)

	dates, err := s.ListRecordDates(ctx, bob, h.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)

	dates, err = s.ListRecordDates(ctx, alice, h.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 1, "alice's record survives bob's delete attempt")
}

func testDatesAscendingAndWindowed(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "journal")
	for _, d := range []int{9, 1, 5, 3, 7} {
		require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(d)))
	}

	dates, err := s.ListRecordDates(ctx, alice, h.ID)
	require.NoError(t, err)
	assertDays(t, []int{1, 3, 5, 7, 9}, dates)

	window, err := s.ListRecordDatesBetween(ctx, alice, h.ID, day(3), day(7))
	require.NoError(t, err)
	assertDays(t, []int{3, 5, 7}, window)
}

func testDeleteCascadesRecords(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "run")
	other := createHabit(t, s, alice, "swim")
	require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(1)))
	require.NoError(t, s.CreateRecord(ctx, alice, h.ID, day(2)))
	require.NoError(t, s.CreateRecord(ctx, alice, other.ID, day(1)))

	require.NoError(t, s.DeleteHabit(ctx, alice, h.ID))

	_, err := s.GetHabit(ctx, alice, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	dates, err := s.ListRecordDates(ctx, alice, h.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)

	dates, err = s.ListRecordDates(ctx, alice, other.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 1)

	assert.ErrorIs(t, s.DeleteHabit(ctx, alice, h.ID), apperr.ErrNotFound)
}

func testConcurrentCreateSingleWinner(t *testing.T, s repository.Store) {
	ctx := context.Background()
	h := createHabit(t, s, alice, "water")

	const writers = 8
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateRecord(ctx, alice, h.ID, day(10))
			switch {
			case err == nil:
				created.Add(1)
			case apperr.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())
}

func testPing(t *testing.T, s repository.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}

func assertDays(t *testing.T, want []int, got []time.Time) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, d := range want {
		assert.True(t, day(d).Equal(got[i]), "index %d: want %s got %s", i, calendar.Format(day(d)), calendar.Format(got[i]))
	}
}
