// Package analytics derives streak and window statistics from a habit's
// completion days. Everything here is pure: the same dates and the same
// "today" always produce the same result, and no input is rejected.
package analytics

import (
	"sort"
	"time"

	"habittracker/internal/calendar"
	"habittracker/internal/model"
)

const (
	WeekWindowDays    = 7
	HistoryWindowDays = 30
)

// Summary holds every figure computed for one habit.
type Summary struct {
	TotalCount    int
	CurrentStreak int
	MaxStreak     int
	WeekCount     int
	TargetPerWeek int
	Last30Days    []model.DayStatus
}

// Compute derives the summary for dates relative to today. dates may arrive
// unsorted or with duplicates; each calendar day counts once. target is
// passed through untouched.
func Compute(dates []time.Time, today time.Time, target int) Summary {
	days := Normalize(dates)
	today = calendar.Normalize(today)
	set := daySet(days)

	return Summary{
		TotalCount:    len(days),
		CurrentStreak: currentStreak(set, today),
		MaxStreak:     MaxStreak(days),
		WeekCount:     WindowCount(days, today, WeekWindowDays),
		TargetPerWeek: target,
		Last30Days:    history(set, today, HistoryWindowDays),
	}
}

// Normalize returns the distinct calendar days of dates in ascending order.
func Normalize(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, calendar.Normalize(d))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := days[:1]
	for _, d := range days[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

// CurrentStreak counts consecutive completed days walking back from today.
// A habit not completed today has no current streak, even if yesterday was
// completed.
func CurrentStreak(dates []time.Time, today time.Time) int {
	return currentStreak(daySet(Normalize(dates)), calendar.Normalize(today))
}

func currentStreak(set map[time.Time]struct{}, today time.Time) int {
	streak := 0
	for day := today; ; day = calendar.AddDays(day, -1) {
		if _, ok := set[day]; !ok {
			return streak
		}
		streak++
	}
}

// MaxStreak is the longest run of calendar-consecutive days anywhere in
// days, which must be ascending and distinct (see Normalize).
func MaxStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if calendar.AddDays(days[i-1], 1).Equal(days[i]) {
			run++
			if run > best {
				best = run
			}
			continue
		}
		run = 1
	}
	return best
}

// WindowCount counts days inside the inclusive window of size days ending
// at today.
func WindowCount(days []time.Time, today time.Time, size int) int {
	today = calendar.Normalize(today)
	start := calendar.AddDays(today, -(size - 1))
	count := 0
	for _, d := range days {
		d = calendar.Normalize(d)
		if !d.Before(start) && !d.After(today) {
			count++
		}
	}
	return count
}

// History lists the size days ending at today, oldest first, flagging the
// completed ones.
func History(dates []time.Time, today time.Time, size int) []model.DayStatus {
	return history(daySet(Normalize(dates)), calendar.Normalize(today), size)
}

func history(set map[time.Time]struct{}, today time.Time, size int) []model.DayStatus {
	out := make([]model.DayStatus, 0, size)
	for i := size - 1; i >= 0; i-- {
		day := calendar.AddDays(today, -i)
		_, done := set[day]
		out = append(out, model.DayStatus{Date: calendar.Format(day), Completed: done})
	}
	return out
}

func daySet(days []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}
