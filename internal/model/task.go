package model

import "time"

// Schedule status constants.
const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusDone      = "done"
)

// Task is an internally-owned work item. Tasks mirrored from a calendar
// have IsCalendarEvent set, a nil PlanID, and CalendarEventID holding the
// external id of the StagedEvent they came from.
type Task struct {
	ID              string  `json:"id" db:"id"`
	UserID          string  `json:"user_id" db:"user_id"`
	ConnectionID    *string `json:"connection_id,omitempty" db:"connection_id"`
	PlanID          *string `json:"plan_id,omitempty" db:"plan_id"`
	Name            string  `json:"name" db:"name"`
	Details         string  `json:"details" db:"details"`
	DurationMinutes int     `json:"duration_minutes" db:"duration_minutes"`
	IsCalendarEvent bool    `json:"is_calendar_event" db:"is_calendar_event"`
	CalendarEventID *string `json:"calendar_event_id,omitempty" db:"calendar_event_id"`

	// Detached marks a task the user decoupled from its source event.
	// Sync never touches a detached task.
	Detached  bool      `json:"detached" db:"detached"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Schedules is populated by loaders that join task_schedules.
	Schedules []TaskSchedule `json:"schedules,omitempty" db:"-"`
}

// EventID returns the external event id, or "" for non-calendar tasks.
func (t Task) EventID() string {
	if t.CalendarEventID == nil {
		return ""
	}
	return *t.CalendarEventID
}

// TaskSchedule places a task on one civil date. A calendar task has one
// schedule, or two when its event crosses midnight.
type TaskSchedule struct {
	ID     string `json:"id" db:"id"`
	TaskID string `json:"task_id" db:"task_id"`

	// Date is the civil date in YYYY-MM-DD form.
	Date      string `json:"date" db:"date"`
	StartTime string `json:"start_time" db:"start_time"`

	// EndTime is nil for open-ended (multi-day) schedules.
	EndTime         *string   `json:"end_time,omitempty" db:"end_time"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
