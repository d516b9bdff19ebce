// Package calendar represents calendar days as time.Time values pinned to
// 00:00:00 UTC, and derives "today" from a single configured day boundary.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format of a calendar day.
const Layout = "2006-01-02"

// Date returns the calendar day y-m-d.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the clock part of t, keeping the day t falls on in its own
// location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// AddDays steps a calendar day forward or backward.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a calendar day as YYYY-MM-DD.
func Format(day time.Time) string {
	return day.Format(Layout)
}

// Clock yields the current calendar day at one fixed day boundary.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a wall clock for the named IANA zone.
func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock always reports day as today. Used by tests and tooling.
func NewFixedClock(day time.Time) *Clock {
	return &Clock{loc: time.UTC, now: func() time.Time { return day }}
}

// Today is the current calendar day in the clock's location.
func (c *Clock) Today() time.Time {
	return Normalize(c.now().In(c.loc))
}

// Location returns the configured day boundary.
func (c *Clock) Location() *time.Location {
	return c.loc
}
