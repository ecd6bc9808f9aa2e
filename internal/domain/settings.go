package domain

import (
	"regexp"
	"time"
)

// DeliveryPref is the per-category delivery selection from the user's
// settings record. "both" means push on day-of conditions plus the rule's
// digest channel otherwise; Off disables the rule entirely.
type DeliveryPref string

const (
	PrefOff           DeliveryPref = "off"
	PrefPush          DeliveryPref = "push"
	PrefMorningDigest DeliveryPref = "morning_digest"
	PrefEveningDigest DeliveryPref = "evening_digest"
	PrefBoth          DeliveryPref = "both"
)

// Valid reports whether p is a member of the closed preference set.
func (p DeliveryPref) Valid() bool {
	switch p {
	case PrefOff, PrefPush, PrefMorningDigest, PrefEveningDigest, PrefBoth:
		return true
	}
	return false
}

// Channel resolves the preference to a concrete delivery channel.
// dayOf selects between push and digest when the preference is "both":
// push for same-day conditions, the digest fallback otherwise.
func (p DeliveryPref) Channel(fallback Channel, dayOf bool) Channel {
	switch p {
	case PrefPush:
		return ChannelPush
	case PrefMorningDigest:
		return ChannelMorningDigest
	case PrefEveningDigest:
		return ChannelEveningDigest
	case PrefBoth:
		if dayOf {
			return ChannelPush
		}
		return fallback
	}
	return fallback
}

// SnoozePreset names a relative-time offset used to compute SnoozedUntil.
type SnoozePreset string

const (
	SnoozeOneHour    SnoozePreset = "one_hour"
	SnoozeLaterToday SnoozePreset = "later_today"
	SnoozeTomorrow   SnoozePreset = "tomorrow"
	SnoozeNextWeek   SnoozePreset = "next_week"
)

// Valid reports whether p is a member of the closed preset set.
func (p SnoozePreset) Valid() bool {
	switch p {
	case SnoozeOneHour, SnoozeLaterToday, SnoozeTomorrow, SnoozeNextWeek:
		return true
	}
	return false
}

// ReminderSettings is the per-user settings record the engine consumes.
// It is owned by the settings subsystem and passed in on each generation
// run; the engine never persists it.
type ReminderSettings struct {
	Tasks          DeliveryPref `json:"notification_tasks"`
	Meetings       DeliveryPref `json:"notification_meetings"`
	ImportantDates DeliveryPref `json:"notification_important_dates"`
	Plans          DeliveryPref `json:"notification_plans"`
	Milestones     DeliveryPref `json:"notification_milestones"`
	Streaks        DeliveryPref `json:"notification_streaks"`

	MonthlyExport bool `json:"monthly_export_enabled"`

	// MorningTime / EveningTime are "HH:MM" digest clock times in the
	// user's zone.
	MorningTime string `json:"morning_digest_time"`
	EveningTime string `json:"evening_digest_time"`

	// AdvanceNoticeDays is the important-date look-ahead window (inclusive).
	AdvanceNoticeDays int `json:"advance_notice_days"`

	// Timezone is an IANA zone name; the empty string means UTC.
	Timezone string `json:"timezone"`

	// Quiet hours are enforced by the delivery transport, not by this
	// engine; they ride along on the same settings record.
	QuietStart string `json:"quiet_hours_start"`
	QuietEnd   string `json:"quiet_hours_end"`
}

var clockRE = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Normalize returns a copy with defaults applied for missing or malformed
// fields. A settings record that fails to load upstream degrades to the
// zero value, so every consumer goes through Normalize first.
func (s ReminderSettings) Normalize() ReminderSettings {
	if !s.Tasks.Valid() {
		s.Tasks = PrefMorningDigest
	}
	if !s.Meetings.Valid() {
		s.Meetings = PrefPush
	}
	if !s.ImportantDates.Valid() {
		s.ImportantDates = PrefMorningDigest
	}
	if !s.Plans.Valid() {
		s.Plans = PrefMorningDigest
	}
	if !s.Milestones.Valid() {
		s.Milestones = PrefMorningDigest
	}
	if !s.Streaks.Valid() {
		s.Streaks = PrefEveningDigest
	}
	if !clockRE.MatchString(s.MorningTime) {
		s.MorningTime = "08:00"
	}
	if !clockRE.MatchString(s.EveningTime) {
		s.EveningTime = "20:00"
	}
	if s.AdvanceNoticeDays <= 0 || s.AdvanceNoticeDays > 60 {
		s.AdvanceNoticeDays = 3
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		s.Timezone = "UTC"
	}
	return s
}

// Location resolves the configured timezone, falling back to UTC.
func (s ReminderSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
