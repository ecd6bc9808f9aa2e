// Package services – DigestService
//
// This file implements the batch read views over the reminder store: the
// ad-hoc pending query and the two daily digest surfaces. All three are pure
// reads scoped to the owner, exclude archived records, and apply the
// snooze-expiry filter; they never mutate status. Marking a digest item
// delivered is an explicit, separate action on the ReminderService.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
	"github.com/tbourn/go-growth-backend/internal/repo"
)

// DigestService provides the read operations consumed by the reminder card
// UI and the two digest surfaces.
type DigestService struct {
	// DB is the GORM handle used for all reads.
	DB *gorm.DB

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewDigestService constructs a DigestService.
func NewDigestService(db *gorm.DB) *DigestService {
	return &DigestService{DB: db, Now: time.Now}
}

func (s *DigestService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Pending returns the user's pending and wake-expired snoozed reminders,
// optionally filtered by channel, ordered by scheduled_at ascending with
// unscheduled records first. A snoozed reminder is surfaced only once
// snoozed_until has passed.
func (s *DigestService) Pending(ctx context.Context, userID string, channel *domain.Channel) ([]domain.Reminder, error) {
	if channel != nil && !channel.Valid() {
		return nil, ErrInvalidChannel
	}
	return repo.ListPending(ctx, s.DB, userID, channel, s.now().UTC())
}

// MorningDigest returns the reminders due on the morning digest surface,
// ordered by creation time ascending.
func (s *DigestService) MorningDigest(ctx context.Context, userID string) ([]domain.Reminder, error) {
	return repo.ListDigest(ctx, s.DB, userID, domain.ChannelMorningDigest, s.now().UTC())
}

// EveningDigest returns the reminders due on the evening digest surface,
// ordered by creation time ascending.
func (s *DigestService) EveningDigest(ctx context.Context, userID string) ([]domain.Reminder, error) {
	return repo.ListDigest(ctx, s.DB, userID, domain.ChannelEveningDigest, s.now().UTC())
}
