// Package services – CleanupService
//
// This file implements the housekeeping sweep that runs occasionally,
// independent of generation: stale delivered reminders are archived and
// over-snoozed reminders are force-dismissed. The second rule is a safety
// net behind the per-operation snooze cap and intentionally fires one step
// above it.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/repo"
)

// CleanupService performs the periodic housekeeping pass over a user's
// reminders.
type CleanupService struct {
	// DB is the GORM handle used for the sweep.
	DB *gorm.DB

	// ArchiveAfter is how long a delivered reminder may sit untouched
	// before archival. Zero or negative falls back to 30 days.
	ArchiveAfter time.Duration

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewCleanupService constructs a CleanupService with the 30-day default
// archival horizon.
func NewCleanupService(db *gorm.DB) *CleanupService {
	return &CleanupService{DB: db, ArchiveAfter: 30 * 24 * time.Hour, Now: time.Now}
}

// CleanupResult reports what one sweep changed.
type CleanupResult struct {
	Archived  int64 `json:"archived"`
	Dismissed int64 `json:"dismissed"`
}

// Run archives delivered reminders whose updated_at is older than the
// archival horizon and force-dismisses snoozed reminders whose snooze count
// reached MaxSnoozes+1. Both actions are owner-scoped bulk updates.
func (s *CleanupService) Run(ctx context.Context, userID string) (CleanupResult, error) {
	horizon := s.ArchiveAfter
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().UTC().Add(-horizon)

	var res CleanupResult
	var err error
	if res.Archived, err = repo.ArchiveStaleDelivered(ctx, s.DB, userID, cutoff); err != nil {
		return res, err
	}
	if res.Dismissed, err = repo.DismissOverSnoozed(ctx, s.DB, userID, MaxSnoozes+1); err != nil {
		return res, err
	}

	if res.Archived > 0 || res.Dismissed > 0 {
		log.Info().
			Str("user_id", userID).
			Int64("archived", res.Archived).
			Int64("dismissed", res.Dismissed).
			Msg("reminder cleanup sweep")
	}
	return res, nil
}
