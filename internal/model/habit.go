package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	MinTargetPerWeek     = 1
	MaxTargetPerWeek     = 7
	DefaultTargetPerWeek = MaxTargetPerWeek

	MaxHabitNameLength = 100 // runes
)

// Habit is a tracked behaviour owned by exactly one user.
type Habit struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	TargetPerWeek int       `json:"target_per_week"`
	Created       time.Time `json:"created"` // calendar day
}

// CompletionRecord states that HabitID was completed on Date.
type CompletionRecord struct {
	HabitID int64     `json:"habit_id"`
	Date    time.Time `json:"date"`
}

// DayStatus is one entry of a rolling history window.
type DayStatus struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// HabitStatus is a habit as shown on the daily overview.
type HabitStatus struct {
	Habit          Habit `json:"habit"`
	CompletedToday bool  `json:"completed_today"`
	WeekCount      int   `json:"week_count"`
}

// HabitStatistics is the full derived view of one habit.
type HabitStatistics struct {
	Habit         Habit       `json:"habit"`
	TotalCount    int         `json:"total_count"`
	CurrentStreak int         `json:"current_streak"`
	MaxStreak     int         `json:"max_streak"`
	WeekCount     int         `json:"week_count"`
	Last30Days    []DayStatus `json:"last_30_days"`
}

// ToggleResult reports the persisted state after a toggle.
type ToggleResult struct {
	HabitID   int64     `json:"habit_id"`
	Date      time.Time `json:"-"`
	Completed bool      `json:"completed"`
}

// ClampWeeklyTarget coerces n into [MinTargetPerWeek, MaxTargetPerWeek].
func ClampWeeklyTarget(n int) int {
	if n < MinTargetPerWeek {
		return MinTargetPerWeek
	}
	if n > MaxTargetPerWeek {
		return MaxTargetPerWeek
	}
	return n
}

// ParseWeeklyTarget coerces raw user input: integers (even ones overflowing
// int) go to the nearest bound, anything unparseable becomes
// DefaultTargetPerWeek.
func ParseWeeklyTarget(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return DefaultTargetPerWeek
	}
	return ClampWeeklyTarget(n)
}
