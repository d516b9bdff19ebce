package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/internal/repository"
	"habittracker/pkg/logger"
)

type HabitService struct {
	store  repository.HabitStore
	logger *zap.Logger
}

func NewHabitService(store repository.HabitStore, logger *zap.Logger) *HabitService {
	return &HabitService{store: store, logger: logger}
}

// CreateHabit creates a habit from raw form input. The weekly target is
// coerced, never rejected: see model.ParseWeeklyTarget.
func (s *HabitService) CreateHabit(ctx context.Context, userID int64, name, targetRaw string, today time.Time) (*model.Habit, error) {
	return s.CreateHabitWithTarget(ctx, userID, name, model.ParseWeeklyTarget(targetRaw), today)
}

// CreateHabitWithTarget is CreateHabit for an already numeric target, which
// is clamped into range.
func (s *HabitService) CreateHabitWithTarget(ctx context.Context, userID int64, name string, target int, today time.Time) (*model.Habit, error) {
	name, err := ValidateHabitName(name)
	if err != nil {
		return nil, err
	}

	h := &model.Habit{
		UserID:        userID,
		Name:          name,
		TargetPerWeek: model.ClampWeeklyTarget(target),
		Created:       calendar.Normalize(today),
	}
	if err := s.store.CreateHabit(ctx, h); err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to create habit",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return h, nil
}

func (s *HabitService) GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error) {
	return s.store.GetHabit(ctx, userID, habitID)
}

func (s *HabitService) ListHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	return s.store.ListHabits(ctx, userID)
}

// DeleteHabit removes the habit together with all of its completion records.
func (s *HabitService) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	if err := s.store.DeleteHabit(ctx, userID, habitID); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Habit deleted",
		zap.Int64("user_id", userID),
		zap.Int64("habit_id", habitID),
	)
	return nil
}

// ValidateHabitName trims name and checks its length in characters.
func ValidateHabitName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", apperr.NewValidationError("name", "must not be empty")
	case n > model.MaxHabitNameLength:
		return "", apperr.NewValidationError("name",
			"must be at most "+strconv.Itoa(model.MaxHabitNameLength)+" characters")
	}
	return name, nil
}
