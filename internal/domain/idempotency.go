// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded outcome of a previously processed
// request, keyed by (user_id, scope, key). It lets POST operations that are
// expensive to repeat (notably a full generation run) be retried safely: a
// replay returns the original outcome without re-executing side effects.
type Idempotency struct {
	ID     string `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	// Scope names the operation the key applies to (e.g. "generate").
	Scope string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key   string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	// ResultCount records how many reminders the original run produced.
	ResultCount int       `gorm:"type:INTEGER NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
