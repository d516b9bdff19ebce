package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/analytics"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/internal/repository"
	"habittracker/pkg/logger"
	"habittracker/pkg/metrics"
)

// StatsStore is the read side of the record store.
type StatsStore interface {
	GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]model.Habit, error)
	ListRecordDates(ctx context.Context, userID, habitID int64) ([]time.Time, error)
	ListRecordDatesBetween(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error)
}

var _ StatsStore = (repository.Store)(nil)

// StatsService computes habit statistics on every read. Nothing is cached.
type StatsService struct {
	store  StatsStore
	logger *zap.Logger
}

func NewStatsService(store StatsStore, logger *zap.Logger) *StatsService {
	return &StatsService{store: store, logger: logger}
}

// ListHabitsWithTodayStatus returns each habit with whether it is done today
// and how many of the last seven days are done.
func (s *StatsService) ListHabitsWithTodayStatus(ctx context.Context, userID int64, today time.Time) ([]model.HabitStatus, error) {
	defer observeStats("today", time.Now())

	today = calendar.Normalize(today)
	from := calendar.AddDays(today, -(analytics.WeekWindowDays - 1))

	habits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.HabitStatus, 0, len(habits))
	for _, h := range habits {
		week, err := s.store.ListRecordDatesBetween(ctx, userID, h.ID, from, today)
		if err != nil {
			return nil, err
		}
		out = append(out, model.HabitStatus{
			Habit:          h,
			CompletedToday: containsDay(week, today),
			WeekCount:      analytics.WindowCount(week, today, analytics.WeekWindowDays),
		})
	}

	logger.WithTrace(ctx, s.logger).Debug("Listed habits with today status",
		zap.Int64("user_id", userID),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// GetStatistics returns full statistics for every habit of the user.
func (s *StatsService) GetStatistics(ctx context.Context, userID int64, today time.Time) ([]model.HabitStatistics, error) {
	defer observeStats("statistics", time.Now())

	habits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.HabitStatistics, 0, len(habits))
	for _, h := range habits {
		st, err := s.statistics(ctx, h, today)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// GetHabitStatistics returns statistics for one habit, or apperr.ErrNotFound.
func (s *StatsService) GetHabitStatistics(ctx context.Context, userID, habitID int64, today time.Time) (*model.HabitStatistics, error) {
	defer observeStats("habit", time.Now())

	h, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	st, err := s.statistics(ctx, *h, today)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StatsService) statistics(ctx context.Context, h model.Habit, today time.Time) (model.HabitStatistics, error) {
	dates, err := s.store.ListRecordDates(ctx, h.UserID, h.ID)
	if err != nil {
		return model.HabitStatistics{}, err
	}

	sum := analytics.Compute(dates, today, h.TargetPerWeek)
	return model.HabitStatistics{
		Habit:         h,
		TotalCount:    sum.TotalCount,
		CurrentStreak: sum.CurrentStreak,
		MaxStreak:     sum.MaxStreak,
		WeekCount:     sum.WeekCount,
		Last30Days:    sum.Last30Days,
	}, nil
}

func containsDay(days []time.Time, day time.Time) bool {
	for _, d := range days {
		if calendar.Normalize(d).Equal(day) {
			return true
		}
	}
	return false
}

func observeStats(view string, start time.Time) {
	metrics.RecordStatsCompute(view, time.Since(start))
}
