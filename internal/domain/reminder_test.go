package domain

import (
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	valid := []Kind{
		KindTaskDue, KindTaskOverdue, KindMeetingDue, KindMeetingDayBefore,
		KindImportantDate, KindPlanCheckin, KindMilestoneApproaching,
		KindMilestoneOverdue, KindStreakAtRisk, KindMonthlyExport, KindCustom,
	}
	for _, k := range valid {
		if !k.Valid() {
			t.Fatalf("expected %q to be valid", k)
		}
	}
	for _, k := range []Kind{"", "task-due", "unknown"} {
		if k.Valid() {
			t.Fatalf("expected %q to be invalid", k)
		}
	}
}

func TestStatusTerminalAndActive(t *testing.T) {
	if !StatusArchived.Terminal() {
		t.Fatalf("archived must be terminal")
	}
	for _, s := range []Status{StatusPending, StatusSnoozed, StatusDelivered, StatusDismissed, StatusActedOn} {
		if s.Terminal() {
			t.Fatalf("%q must not be terminal", s)
		}
	}
	for _, s := range ActiveStatuses {
		if !s.Active() {
			t.Fatalf("%q must be active", s)
		}
	}
	for _, s := range []Status{StatusDismissed, StatusActedOn, StatusArchived} {
		if s.Active() {
			t.Fatalf("%q must not be active", s)
		}
	}
}

func TestChannelValid(t *testing.T) {
	for _, c := range []Channel{ChannelPush, ChannelMorningDigest, ChannelEveningDigest, ChannelInApp} {
		if !c.Valid() {
			t.Fatalf("expected %q to be valid", c)
		}
	}
	if Channel("sms").Valid() {
		t.Fatalf("unexpected valid channel")
	}
}

func TestTableNames(t *testing.T) {
	if got := (Reminder{}).TableName(); got != "reminders" {
		t.Fatalf("Reminder table = %q", got)
	}
	if got := (Idempotency{}).TableName(); got != "idempotency" {
		t.Fatalf("Idempotency table = %q", got)
	}
}

func TestHasRelatedEntity(t *testing.T) {
	r := &Reminder{}
	if r.HasRelatedEntity() {
		t.Fatalf("nil pointers must not count as related entity")
	}
	kind, id := "task", "t1"
	r.RelatedKind = &kind
	if r.HasRelatedEntity() {
		t.Fatalf("kind without id must not count")
	}
	r.RelatedID = &id
	if !r.HasRelatedEntity() {
		t.Fatalf("expected related entity")
	}
	empty := ""
	r.RelatedID = &empty
	if r.HasRelatedEntity() {
		t.Fatalf("empty id must not count")
	}
}

func TestDeliveryPrefChannel(t *testing.T) {
	cases := []struct {
		pref  DeliveryPref
		dayOf bool
		want  Channel
	}{
		{PrefPush, false, ChannelPush},
		{PrefMorningDigest, true, ChannelMorningDigest},
		{PrefEveningDigest, false, ChannelEveningDigest},
		{PrefBoth, true, ChannelPush},
		{PrefBoth, false, ChannelMorningDigest},
	}
	for _, tc := range cases {
		if got := tc.pref.Channel(ChannelMorningDigest, tc.dayOf); got != tc.want {
			t.Fatalf("pref %q dayOf=%v: got %q want %q", tc.pref, tc.dayOf, got, tc.want)
		}
	}
}

func TestSettingsNormalizeDefaults(t *testing.T) {
	s := ReminderSettings{}.Normalize()
	if s.Tasks != PrefMorningDigest || s.Meetings != PrefPush || s.Streaks != PrefEveningDigest {
		t.Fatalf("unexpected category defaults: %+v", s)
	}
	if s.MorningTime != "08:00" || s.EveningTime != "20:00" {
		t.Fatalf("unexpected clock defaults: %q %q", s.MorningTime, s.EveningTime)
	}
	if s.AdvanceNoticeDays != 3 {
		t.Fatalf("advance notice default = %d", s.AdvanceNoticeDays)
	}
	if s.Timezone != "UTC" {
		t.Fatalf("timezone default = %q", s.Timezone)
	}
}

func TestSettingsNormalizeKeepsValidValues(t *testing.T) {
	in := ReminderSettings{
		Tasks:             PrefOff,
		Meetings:          PrefEveningDigest,
		ImportantDates:    PrefBoth,
		Plans:             PrefPush,
		Milestones:        PrefOff,
		Streaks:           PrefOff,
		MorningTime:       "06:30",
		EveningTime:       "21:15",
		AdvanceNoticeDays: 7,
		Timezone:          "Europe/London",
	}
	out := in.Normalize()
	if out != in {
		t.Fatalf("valid settings must pass through unchanged:\n in=%+v\nout=%+v", in, out)
	}
}

func TestSettingsNormalizeRejectsMalformedClock(t *testing.T) {
	s := ReminderSettings{MorningTime: "25:00", EveningTime: "9:99"}.Normalize()
	if s.MorningTime != "08:00" || s.EveningTime != "20:00" {
		t.Fatalf("malformed clocks must fall back to defaults: %q %q", s.MorningTime, s.EveningTime)
	}
}

func TestSettingsLocation(t *testing.T) {
	s := ReminderSettings{Timezone: "Europe/Athens"}
	loc := s.Location()
	if loc == nil || loc.String() != "Europe/Athens" {
		t.Fatalf("unexpected location: %v", loc)
	}
	bad := ReminderSettings{Timezone: "Mars/Olympus"}
	if got := bad.Location(); got != time.UTC {
		t.Fatalf("invalid zone must fall back to UTC, got %v", got)
	}
}
