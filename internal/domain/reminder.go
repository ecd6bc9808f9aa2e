// Package domain defines the persistence models for the reminder engine.
// These types are mapped with GORM and form the core data layer of the
// growth-tracker backend.
package domain

import "time"

// Kind enumerates the closed set of reminder kinds. Each generator rule
// produces exactly one or two kinds; Custom is reserved for user-authored
// reminders that bypass the rules.
type Kind string

const (
	KindTaskDue              Kind = "task_due"
	KindTaskOverdue          Kind = "task_overdue"
	KindMeetingDue           Kind = "meeting_due"
	KindMeetingDayBefore     Kind = "meeting_day_before"
	KindImportantDate        Kind = "important_date"
	KindPlanCheckin          Kind = "plan_checkin"
	KindMilestoneApproaching Kind = "milestone_approaching"
	KindMilestoneOverdue     Kind = "milestone_overdue"
	KindStreakAtRisk         Kind = "streak_at_risk"
	KindMonthlyExport        Kind = "monthly_export"
	KindCustom               Kind = "custom"
)

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindTaskDue, KindTaskOverdue, KindMeetingDue, KindMeetingDayBefore,
		KindImportantDate, KindPlanCheckin, KindMilestoneApproaching,
		KindMilestoneOverdue, KindStreakAtRisk, KindMonthlyExport, KindCustom:
		return true
	}
	return false
}

// Status enumerates the reminder lifecycle states.
//
// Transitions: pending → {delivered, snoozed, dismissed, acted_on} → archived;
// snoozed → {snoozed, dismissed, acted_on}. Archived is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSnoozed   Status = "snoozed"
	StatusDelivered Status = "delivered"
	StatusDismissed Status = "dismissed"
	StatusActedOn   Status = "acted_on"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSnoozed, StatusDelivered, StatusDismissed,
		StatusActedOn, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool { return s == StatusArchived }

// Active reports whether s counts toward the dedup invariant: at most one
// reminder in an active status may exist per (user, kind, related entity).
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusSnoozed:
		return true
	}
	return false
}

// ActiveStatuses is the SQL-facing list backing Status.Active.
var ActiveStatuses = []Status{StatusPending, StatusDelivered, StatusSnoozed}

// Channel enumerates how a reminder reaches the user.
type Channel string

const (
	ChannelPush          Channel = "push"
	ChannelMorningDigest Channel = "morning_digest"
	ChannelEveningDigest Channel = "evening_digest"
	ChannelInApp         Channel = "in_app"
)

// Valid reports whether c is a member of the closed channel set.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelMorningDigest, ChannelEveningDigest, ChannelInApp:
		return true
	}
	return false
}

// Reminder is a single generated or user-authored reminder record. Rows are
// never deleted; archival is the terminal state so history is preserved.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owner of the reminder; every query is scoped to it.
//   - Kind / Status / Channel: closed enums, constrained at the DB level.
//   - Title / Body: display text, fully formatted by the rule that created it.
//   - ScheduledAt: optional future visibility time; nil means "visible now".
//   - RelatedKind / RelatedID: weak reference to the domain object that caused
//     the reminder; together with UserID and Kind they form the dedup tuple.
//   - SourceDomain: which feature generated it, for grouping/attribution only.
//   - Metadata: free-form display context (person name, plan title, ...).
//   - SnoozeCount: successful reschedules so far; monotonically non-decreasing
//     while the record stays snoozed.
//   - SnoozedUntil: only meaningful while Status == snoozed.
//   - ArchivedAt: set once when the record reaches the terminal state.
type Reminder struct {
	ID           string            `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string            `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_reminders;index:idx_dedup_tuple,priority:1"`
	Kind         Kind              `json:"kind"          gorm:"type:varchar(32);not null;index:idx_dedup_tuple,priority:2"`
	Title        string            `json:"title"         gorm:"type:varchar(255);not null"`
	Body         *string           `json:"body,omitempty" gorm:"type:text"`
	Channel      Channel           `json:"channel"       gorm:"type:varchar(16);not null;check:channel IN ('push','morning_digest','evening_digest','in_app')"`
	ScheduledAt  *time.Time        `json:"scheduled_at,omitempty"`
	Status       Status            `json:"status"        gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','snoozed','delivered','dismissed','acted_on','archived')"`
	RelatedKind  *string           `json:"related_entity_kind,omitempty" gorm:"type:varchar(32);index:idx_dedup_tuple,priority:3"`
	RelatedID    *string           `json:"related_entity_id,omitempty"   gorm:"type:varchar(64);index:idx_dedup_tuple,priority:4"`
	SourceDomain string            `json:"source_domain" gorm:"type:varchar(32);not null"`
	Metadata     map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	SnoozeCount  int               `json:"snooze_count"  gorm:"not null;default:0"`
	SnoozedUntil *time.Time        `json:"snoozed_until,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ArchivedAt   *time.Time        `json:"archived_at,omitempty"`
}

// TableName returns the database table name for Reminder.
func (Reminder) TableName() string { return "reminders" }

// HasRelatedEntity reports whether the reminder points at a source-domain
// object. Reminders without one are exempt from deduplication.
func (r *Reminder) HasRelatedEntity() bool {
	return r.RelatedKind != nil && r.RelatedID != nil && *r.RelatedID != ""
}
