package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/internal/repository"
	"habittracker/pkg/logger"
	"habittracker/pkg/metrics"
)

// ToggleStore is what the toggle needs from the record store.
type ToggleStore interface {
	GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error)
	repository.RecordStore
}

// ToggleService flips one day's completion state for a habit.
type ToggleService struct {
	store  ToggleStore
	logger *zap.Logger
}

func NewToggleService(store ToggleStore, logger *zap.Logger) *ToggleService {
	return &ToggleService{store: store, logger: logger}
}

// Toggle inverts the completion of habitID on date and returns the state
// now persisted. Exactly one record write is attempted per call.
//
// A lost race is not an error: when another writer created the record
// first the result is true, and when another writer deleted it first the
// result is false. Either way the returned value is what storage holds.
func (s *ToggleService) Toggle(ctx context.Context, userID, habitID int64, date time.Time) (bool, error) {
	log := logger.WithTrace(ctx, s.logger).With(
		zap.Int64("user_id", userID),
		zap.Int64("habit_id", habitID),
		zap.String("date", calendar.Format(date)),
	)
	date = calendar.Normalize(date)

	if _, err := s.store.GetHabit(ctx, userID, habitID); err != nil {
		return s.fail(log, err)
	}

	exists, err := s.store.RecordExists(ctx, userID, habitID, date)
	if err != nil {
		return s.fail(log, err)
	}

	if exists {
		err := s.store.DeleteRecord(ctx, userID, habitID, date)
		switch {
		case err == nil:
		case apperr.IsNotFound(err):
			metrics.IncrementToggleReconciled("delete_missing")
			log.Info("Record already removed by a concurrent toggle")
		default:
			return s.fail(log, err)
		}
		metrics.IncrementToggle("uncompleted")
		log.Debug("Habit toggled", zap.Bool("completed", false))
		return false, nil
	}

	err = s.store.CreateRecord(ctx, userID, habitID, date)
	switch {
	case err == nil:
	case apperr.IsConflict(err):
		metrics.IncrementToggleReconciled("create_conflict")
		log.Info("Record already created by a concurrent toggle")
	default:
		return s.fail(log, err)
	}
	metrics.IncrementToggle("completed")
	log.Debug("Habit toggled", zap.Bool("completed", true))
	return true, nil
}

func (s *ToggleService) fail(log *zap.Logger, err error) (bool, error) {
	metrics.IncrementToggle("error")
	if !apperr.IsNotFound(err) {
		log.Error("Toggle failed", zap.Error(err))
	}
	return false, err
}
