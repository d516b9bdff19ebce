package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
)

func TestCreateHabit_TargetCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"3", 3},
		{" 5 ", 5},
		{"0", 1},
		{"-4", 1},
		{"12", 7},
		{"seven", 7},
		{"", 7},
		{"2.5", 7},
		{"99999999999999999999999", 7},
		{"-99999999999999999999999", 1},
	}

	store := createTestStore(t)
	svc := NewHabitService(store, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			h, err := svc.CreateHabit(context.Background(), 1, "Habit", tt.raw, toggleDay)
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.TargetPerWeek)
		})
	}
}

func TestCreateHabitWithTarget_Clamps(t *testing.T) {
	svc := NewHabitService(createTestStore(t), zap.NewNop())

	h, err := svc.CreateHabitWithTarget(context.Background(), 1, "Yoga", 40, toggleDay)
	require.NoError(t, err)
	assert.Equal(t, 7, h.TargetPerWeek)

	h, err = svc.CreateHabitWithTarget(context.Background(), 1, "Yoga", -1, toggleDay)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TargetPerWeek)
}

func TestCreateHabit_NameRules(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	svc := NewHabitService(store, zap.NewNop())

	h, err := svc.CreateHabit(ctx, 1, "  Drink water \n", "7", toggleDay.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Drink water", h.Name)
	assert.True(t, toggleDay.Equal(h.Created))

	stored, err := svc.GetHabit(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drink water", stored.Name)

	_, err = svc.CreateHabit(ctx, 1, "   ", "7", toggleDay)
	v, ok := apperr.AsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "name", v.Field)

	// 100 multi-byte characters fit, 101 do not
	_, err = svc.CreateHabit(ctx, 1, strings.Repeat("ž", 100), "7", toggleDay)
	assert.NoError(t, err)
	_, err = svc.CreateHabit(ctx, 1, strings.Repeat("ž", 101), "7", toggleDay)
	_, ok = apperr.AsValidation(err)
	assert.True(t, ok)
}

func TestDeleteHabit_CascadesAndScopes(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)
	habits := NewHabitService(store, zap.NewNop())
	toggles := NewToggleService(store, zap.NewNop())

	h, err := habits.CreateHabit(ctx, 1, "Run", "3", toggleDay)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := toggles.Toggle(ctx, 1, h.ID, calendar.AddDays(toggleDay, -i))
		require.NoError(t, err)
	}

	assert.ErrorIs(t, habits.DeleteHabit(ctx, 2, h.ID), apperr.ErrNotFound)
	require.NoError(t, habits.DeleteHabit(ctx, 1, h.ID))

	_, err = habits.GetHabit(ctx, 1, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	dates, err := store.ListRecordDates(ctx, 1, h.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)

	list, err := habits.ListHabits(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
