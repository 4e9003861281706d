package model

import "time"

// CalendarEventLink records which task and schedule a staged event
// produced. Push-back features read it; reconciliation does not need it.
type CalendarEventLink struct {
	ID           string    `json:"id" db:"id"`
	ConnectionID string    `json:"connection_id" db:"connection_id"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	TaskID       string    `json:"task_id" db:"task_id"`
	ScheduleID   string    `json:"schedule_id" db:"schedule_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
