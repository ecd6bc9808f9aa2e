package schedule

import (
	"testing"
	"time"

	"github.com/tbourn/go-growth-backend/internal/domain"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("06:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c.Hour != 6 || c.Minute != 30 {
		t.Fatalf("unexpected clock: %+v", c)
	}
	if c.String() != "06:30" {
		t.Fatalf("String() = %q", c.String())
	}

	for _, bad := range []string{"", "6", "24:00", "12:60", "ab:cd", "12-30"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDayOfTruncatesInZone(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// 23:30 UTC on Jan 1 is already Jan 2 in Athens (UTC+2).
	utc := time.Date(2025, 1, 1, 23, 30, 0, 0, time.UTC)
	day := DayOf(utc, athens)
	if day.Year() != 2025 || day.Month() != time.January || day.Day() != 2 {
		t.Fatalf("expected Jan 2 in Athens, got %v", day)
	}
	if day.Hour() != 0 || day.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", day)
	}
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2025, 3, 10, 15, 0, 0, 0, loc)
	b := time.Date(2025, 3, 12, 1, 0, 0, 0, loc)
	if got := DaysBetween(a, b, loc); got != 2 {
		t.Fatalf("DaysBetween forward = %d, want 2", got)
	}
	if got := DaysBetween(b, a, loc); got != -2 {
		t.Fatalf("DaysBetween backward = %d, want -2", got)
	}
	if got := DaysBetween(a, a.Add(2*time.Hour), loc); got != 0 {
		t.Fatalf("same day = %d, want 0", got)
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// The UK spring-forward on 2025-03-30 makes that day 23 hours long.
	a := time.Date(2025, 3, 29, 12, 0, 0, 0, london)
	b := time.Date(2025, 3, 31, 12, 0, 0, 0, london)
	if got := DaysBetween(a, b, london); got != 2 {
		t.Fatalf("DST window = %d days, want 2", got)
	}
}

func TestAnchorToYear(t *testing.T) {
	birthday := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	got := AnchorToYear(birthday, 2025)
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("AnchorToYear = %v, want %v", got, want)
	}
	// Feb 29 rolls to Mar 1 outside leap years.
	leap := time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)
	if got := AnchorToYear(leap, 2025); got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("Feb 29 anchor = %v, want Mar 1", got)
	}
}

func TestSnoozeUntilRelativePresets(t *testing.T) {
	now := time.Date(2025, 5, 14, 10, 15, 0, 0, time.UTC)
	morning := Clock{Hour: 6, Minute: 30}

	got, err := SnoozeUntil(domain.SnoozeOneHour, now, morning, time.UTC)
	if err != nil || !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("one_hour = %v err=%v", got, err)
	}
	got, err = SnoozeUntil(domain.SnoozeLaterToday, now, morning, time.UTC)
	if err != nil || !got.Equal(now.Add(6*time.Hour)) {
		t.Fatalf("later_today = %v err=%v", got, err)
	}
}

func TestSnoozeUntilTomorrowUsesMorningClock(t *testing.T) {
	now := time.Date(2025, 5, 14, 22, 45, 0, 0, time.UTC)
	got, err := SnoozeUntil(domain.SnoozeTomorrow, now, Clock{Hour: 6, Minute: 30}, time.UTC)
	if err != nil {
		t.Fatalf("SnoozeUntil: %v", err)
	}
	want := time.Date(2025, 5, 15, 6, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("tomorrow = %v, want %v", got, want)
	}
}

func TestSnoozeUntilNextWeek(t *testing.T) {
	morning := Clock{Hour: 8, Minute: 0}
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			// Wednesday → following Monday.
			name: "midweek",
			now:  time.Date(2025, 5, 14, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 5, 19, 8, 0, 0, 0, time.UTC),
		},
		{
			// Sunday → tomorrow.
			name: "sunday",
			now:  time.Date(2025, 5, 18, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 5, 19, 8, 0, 0, 0, time.UTC),
		},
		{
			// Monday → a full week out, never today.
			name: "monday",
			now:  time.Date(2025, 5, 19, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 5, 26, 8, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		got, err := SnoozeUntil(domain.SnoozeNextWeek, tc.now, morning, time.UTC)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSnoozeUntilUnknownPreset(t *testing.T) {
	if _, err := SnoozeUntil(domain.SnoozePreset("never"), time.Now(), Clock{}, time.UTC); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestSameDay(t *testing.T) {
	loc := time.UTC
	a := time.Date(2025, 7, 1, 0, 30, 0, 0, loc)
	b := time.Date(2025, 7, 1, 23, 30, 0, 0, loc)
	if !SameDay(a, b, loc) {
		t.Fatalf("expected same day")
	}
	if SameDay(a, b.Add(time.Hour), loc) {
		t.Fatalf("expected different days")
	}
}
