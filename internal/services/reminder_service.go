// Package services – ReminderService
//
// This file implements the ReminderService, which owns the reminder lifecycle
// state machine: dismiss, act-on, snooze (with bounded escalation), explicit
// delivery marking, and user-authored custom reminders. Service-level errors
// (e.g. ErrReminderNotFound, ErrReminderArchived) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
	"github.com/tbourn/go-growth-backend/internal/repo"
	"github.com/tbourn/go-growth-backend/internal/schedule"
)

// MaxSnoozes caps the number of successful reschedules per reminder. The
// snooze that would exceed it dismisses instead. The cleanup sweep uses
// MaxSnoozes+1 as a redundant safety net for records that predate the cap.
const MaxSnoozes = 2

// ReminderService provides the lifecycle operations on individual reminders.
// All operations are owner-scoped single-record updates; last write wins.
type ReminderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time

	// TitleMaxLen caps custom reminder titles by rune length.
	TitleMaxLen int
}

// NewReminderService constructs a ReminderService with sane defaults.
func NewReminderService(db *gorm.DB) *ReminderService {
	return &ReminderService{DB: db, Now: time.Now, TitleMaxLen: 120}
}

func (s *ReminderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Dismiss moves a reminder from any non-terminal state to dismissed.
func (s *ReminderService) Dismiss(ctx context.Context, userID, id string) error {
	_, err := s.transition(ctx, userID, id, domain.StatusDismissed)
	return err
}

// ActOn moves a reminder from any non-terminal state to acted_on, signaling
// that the user performed the underlying action.
func (s *ReminderService) ActOn(ctx context.Context, userID, id string) error {
	_, err := s.transition(ctx, userID, id, domain.StatusActedOn)
	return err
}

// MarkDelivered records that a reminder was shown to the user. Only pending
// and snoozed reminders can be delivered; anything else is an invalid
// transition.
func (s *ReminderService) MarkDelivered(ctx context.Context, userID, id string) error {
	r, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if r.Status != domain.StatusPending && r.Status != domain.StatusSnoozed {
		return ErrInvalidTransition
	}
	return s.setStatus(ctx, userID, id, domain.StatusDelivered)
}

// Snooze reschedules a reminder according to the named preset, computed
// relative to now in the owner's zone. The morning clock anchors the
// "tomorrow" and "next_week" presets.
//
// Escalation is bounded: once SnoozeCount has reached MaxSnoozes, the call
// dismisses the reminder instead of rescheduling it, leaving the count
// unchanged. The updated record is returned either way.
func (s *ReminderService) Snooze(ctx context.Context, userID, id string, preset domain.SnoozePreset, morning schedule.Clock, loc *time.Location) (*domain.Reminder, error) {
	if !preset.Valid() {
		return nil, ErrInvalidPreset
	}
	if loc == nil {
		loc = time.UTC
	}

	r, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, ErrReminderArchived
	}

	if r.SnoozeCount >= MaxSnoozes {
		if err := s.setStatus(ctx, userID, id, domain.StatusDismissed); err != nil {
			return nil, err
		}
		return repo.GetReminder(ctx, s.DB, id, userID)
	}

	until, err := schedule.SnoozeUntil(preset, s.now(), morning, loc)
	if err != nil {
		return nil, ErrInvalidPreset
	}
	if err := repo.SnoozeReminder(ctx, s.DB, id, userID, until.UTC(), r.SnoozeCount+1); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return repo.GetReminder(ctx, s.DB, id, userID)
}

// CreateCustom inserts a user-authored reminder, bypassing the domain rules.
// When a related entity is supplied the dedup invariant still applies and a
// collision yields ErrDuplicateReminder; free-form reminders are always
// created.
func (s *ReminderService) CreateCustom(ctx context.Context, userID, title string, body *string, scheduledAt *time.Time, relatedKind, relatedID *string) (*domain.Reminder, error) {
	title = normalizeTitle(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	r := &domain.Reminder{
		UserID:       userID,
		Kind:         domain.KindCustom,
		Title:        s.clip(title),
		Body:         body,
		Channel:      domain.ChannelInApp,
		ScheduledAt:  scheduledAt,
		RelatedKind:  relatedKind,
		RelatedID:    relatedID,
		SourceDomain: "custom",
	}
	if r.HasRelatedEntity() {
		exists, err := repo.ActiveExists(ctx, s.DB, userID, r.Kind, *r.RelatedKind, *r.RelatedID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateReminder
		}
	}
	if err := repo.CreateReminder(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// load fetches an owner-scoped reminder, mapping the repo sentinel to the
// service error.
func (s *ReminderService) load(ctx context.Context, userID, id string) (*domain.Reminder, error) {
	r, err := repo.GetReminder(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return r, nil
}

// transition applies a simple status change after checking the record is
// non-terminal, returning the prior state.
func (s *ReminderService) transition(ctx context.Context, userID, id string, to domain.Status) (domain.Status, error) {
	r, err := s.load(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if r.Status.Terminal() {
		return r.Status, ErrReminderArchived
	}
	return r.Status, s.setStatus(ctx, userID, id, to)
}

func (s *ReminderService) setStatus(ctx context.Context, userID, id string, to domain.Status) error {
	if err := repo.SetStatus(ctx, s.DB, id, userID, to); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		return err
	}
	return nil
}

// clip truncates a custom title to the configured maximum rune length.
func (s *ReminderService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
