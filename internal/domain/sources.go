package domain

import "time"

// The types in this file mirror the read surface of the seven source-of-truth
// stores the generator scans. They are plain structs, not GORM models: the
// engine only ever reads them through the source interfaces declared in the
// services package.

// Task is a to-do item from the task store.
type Task struct {
	ID        string
	Title     string
	DueDate   *time.Time
	Completed bool
	Archived  bool
	// ParentID is non-nil for subtasks; the task rules only consider
	// top-level tasks.
	ParentID *string
	// Recurring marks streak-tracked tasks (daily habits etc.).
	Recurring bool
}

// MeetingSchedule is a recurring meeting cadence with a person.
type MeetingSchedule struct {
	ID       string
	PersonID string
	// Category is a free-form label ("coffee", "one on one", ...).
	Category    string
	NextDueDate *time.Time
}

// DatedEvent is a labeled date tracked for a person (birthday, anniversary,
// one-off occasion). Recurring events re-anchor month/day to the current year
// before distance is computed.
type DatedEvent struct {
	Label     string
	Date      time.Time
	Recurring bool
}

// Person is a tracked relationship from the people store.
type Person struct {
	ID          string
	DisplayName string
	// Primary marks the user's inner-circle relationships; used for
	// attribution only.
	Primary bool
	Dates   []DatedEvent
}

// ChangePlan is a long-term change plan with a scheduled check-in cadence.
type ChangePlan struct {
	ID          string
	Title       string
	Active      bool
	NextCheckin *time.Time
}

// MilestoneStatus is the progress state of a project milestone.
type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneDone       MilestoneStatus = "done"
)

// Milestone is a dated step within a project.
type Milestone struct {
	ID         string
	Title      string
	Status     MilestoneStatus
	TargetDate *time.Time
}

// Project is a project with optional milestone nudging.
type Project struct {
	ID            string
	Title         string
	Active        bool
	NudgesEnabled bool
	Milestones    []Milestone
}
