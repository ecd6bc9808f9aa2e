// Package services implements the reminder engine's business logic: rule
// evaluation, the reminder lifecycle, digest reads, and housekeeping.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrReminderNotFound indicates that the requested reminder does not
	// exist or is not accessible to the current user.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrReminderArchived is returned when a lifecycle transition is
	// attempted on an archived reminder. Archived is terminal.
	ErrReminderArchived = errors.New("reminder is archived")

	// ErrInvalidTransition is returned when the requested transition is not
	// allowed from the reminder's current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrInvalidPreset is returned when a snooze request names an unknown
	// preset.
	ErrInvalidPreset = errors.New("unknown snooze preset")

	// ErrInvalidChannel is returned when a read filter names an unknown
	// delivery channel.
	ErrInvalidChannel = errors.New("unknown delivery channel")

	// ErrEmptyTitle is returned when a custom reminder is created without
	// a title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrDuplicateReminder is returned when a custom reminder with a related
	// entity collides with an existing active reminder for the same cause.
	ErrDuplicateReminder = errors.New("active reminder already exists for this entity")
)
