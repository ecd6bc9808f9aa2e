// Package schedule provides the calendar arithmetic used by the reminder
// engine: local calendar days, day distances, clock-of-day handling, and
// snooze target computation. All functions are pure and zone-aware; due
// dates are compared in the owner's local calendar day, never in absolute
// time, so date comparisons stay correct across time zones.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-growth-backend/internal/domain"
)

// Clock is a time of day without a date, e.g. the user's morning digest time.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string. Hours 0-23 and minutes 0-59 are
// accepted; anything else is an error.
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// String formats the clock back to "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// NextDay returns midnight of the calendar day after day.
// AddDate handles DST transitions; the result is always a valid local time.
func NextDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1)
}

// At anchors a clock time onto a calendar day, in that day's location.
func At(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// DaysBetween returns the number of calendar days from a to b in loc
// (negative when b is before a). Both operands are truncated to their
// calendar day first, so a 23-hour DST day still counts as one day.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da, db := DayOf(a, loc), DayOf(b, loc)
	hours := db.Sub(da).Hours()
	if hours < 0 {
		return -int((-hours + 12) / 24)
	}
	return int((hours + 12) / 24)
}

// AnchorToYear moves a recurring date's month/day into the given year,
// preserving the location. Feb 29 lands on Mar 1 in non-leap years, which
// matches how the calendar rolls the date forward.
func AnchorToYear(date time.Time, year int) time.Time {
	return time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayOf(a, loc).Equal(DayOf(b, loc))
}

// SnoozeUntil computes the wake-up time for a snooze preset relative to now.
//
// Presets:
//   - one_hour:    now + 1h
//   - later_today: now + 6h
//   - tomorrow:    next calendar day at the morning digest clock
//   - next_week:   next Monday at the morning digest clock; when now is a
//     Sunday, "next Monday" is tomorrow.
func SnoozeUntil(preset domain.SnoozePreset, now time.Time, morning Clock, loc *time.Location) (time.Time, error) {
	switch preset {
	case domain.SnoozeOneHour:
		return now.Add(time.Hour), nil
	case domain.SnoozeLaterToday:
		return now.Add(6 * time.Hour), nil
	case domain.SnoozeTomorrow:
		return At(NextDay(DayOf(now, loc)), morning), nil
	case domain.SnoozeNextWeek:
		return At(nextMonday(DayOf(now, loc)), morning), nil
	}
	return time.Time{}, fmt.Errorf("unknown snooze preset %q", preset)
}

// nextMonday returns the Monday strictly after day. For a Sunday that is
// tomorrow; for a Monday it is a full week out.
func nextMonday(day time.Time) time.Time {
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
