// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Reminder
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Reminder rows are never deleted;
// archival is the terminal state.
//
// Error semantics:
//   - When a reminder is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateReminder inserts a new Reminder row. A UUID primary key, pending
// status, and a UTC creation timestamp are assigned when unset. The caller
// is responsible for having run the dedup check first; creation itself never
// consults existing rows.
func CreateReminder(ctx context.Context, db *gorm.DB, r *domain.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ActiveExists reports whether any reminder in an active status (pending,
// delivered, snoozed) matches the dedup tuple. This is the check half of the
// engine's check-then-insert deduplication.
func ActiveExists(ctx context.Context, db *gorm.DB, userID string, kind domain.Kind, relatedKind, relatedID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("user_id = ? AND kind = ? AND related_kind = ? AND related_id = ?", userID, kind, relatedKind, relatedID).
		Where("status IN ?", domain.ActiveStatuses).
		Count(&n).Error
	return n > 0, err
}

// CountByRelated returns the lifetime number of reminders of the given kind
// ever created for a related entity, regardless of status. Used to enforce
// per-entity creation ceilings (e.g. overdue milestone nudges).
func CountByRelated(ctx context.Context, db *gorm.DB, userID string, kind domain.Kind, relatedKind, relatedID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("user_id = ? AND kind = ? AND related_kind = ? AND related_id = ?", userID, kind, relatedKind, relatedID).
		Count(&n).Error
	return n, err
}

// GetReminder fetches a single reminder by its ID and owner. If the record
// does not exist, it returns ErrNotFound.
func GetReminder(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Reminder, error) {
	var r domain.Reminder
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SetStatus updates the lifecycle status of a reminder, enforcing ownership.
// Moving to archived also stamps archived_at; any other target clears
// snoozed_until so a stale wake-up time never outlives the snoozed state.
// Returns ErrNotFound when no row matched.
func SetStatus(ctx context.Context, db *gorm.DB, id, userID string, status domain.Status) error {
	cols := map[string]any{"status": status}
	if status == domain.StatusArchived {
		now := time.Now().UTC()
		cols["archived_at"] = &now
	} else {
		cols["snoozed_until"] = nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SnoozeReminder moves a reminder to the snoozed state with the given
// wake-up time and snooze count in one update. Returns ErrNotFound when no
// row matched.
func SnoozeReminder(ctx context.Context, db *gorm.DB, id, userID string, until time.Time, count int) error {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"status":        domain.StatusSnoozed,
			"snoozed_until": until,
			"snooze_count":  count,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPending returns pending and wake-expired snoozed reminders for a user,
// optionally filtered by channel, ordered by scheduled_at ascending. SQLite
// sorts NULLs first on ASC, which gives unscheduled ("visible now") records
// precedence. A snoozed record is included only once snoozed_until <= now.
func ListPending(ctx context.Context, db *gorm.DB, userID string, channel *domain.Channel, now time.Time) ([]domain.Reminder, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusSnoozed}).
		Where("status <> ? OR (snoozed_until IS NOT NULL AND snoozed_until <= ?)", domain.StatusSnoozed, now)
	if channel != nil {
		q = q.Where("channel = ?", *channel)
	}
	var out []domain.Reminder
	err := q.Order("scheduled_at asc").Order("created_at asc").Find(&out).Error
	return out, err
}

// ListDigest returns the reminders due on a digest surface: pending and
// wake-expired snoozed records on the given channel whose scheduled_at is
// absent or has passed, ordered by creation time ascending.
func ListDigest(ctx context.Context, db *gorm.DB, userID string, channel domain.Channel, now time.Time) ([]domain.Reminder, error) {
	var out []domain.Reminder
	err := db.WithContext(ctx).
		Where("user_id = ? AND channel = ?", userID, channel).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusSnoozed}).
		Where("status <> ? OR (snoozed_until IS NOT NULL AND snoozed_until <= ?)", domain.StatusSnoozed, now).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ArchiveStaleDelivered moves delivered reminders whose updated_at is older
// than cutoff into the archived terminal state, returning how many rows were
// affected.
func ArchiveStaleDelivered(ctx context.Context, db *gorm.DB, userID string, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("user_id = ? AND status = ? AND updated_at < ?", userID, domain.StatusDelivered, cutoff).
		Updates(map[string]any{
			"status":      domain.StatusArchived,
			"archived_at": &now,
		})
	return res.RowsAffected, res.Error
}

// DismissOverSnoozed force-dismisses snoozed reminders whose snooze count
// has reached minCount, returning how many rows were affected.
func DismissOverSnoozed(ctx context.Context, db *gorm.DB, userID string, minCount int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("user_id = ? AND status = ? AND snooze_count >= ?", userID, domain.StatusSnoozed, minCount).
		Updates(map[string]any{
			"status":        domain.StatusDismissed,
			"snoozed_until": nil,
		})
	return res.RowsAffected, res.Error
}
