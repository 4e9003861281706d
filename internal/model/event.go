package model

import (
	"errors"
	"fmt"
	"time"
)

// StagedEvent is an external calendar event that a provider client has
// already fetched and persisted, waiting to be reconciled into tasks.
// Identity is (ConnectionID, ExternalID); updates to the upstream event
// arrive as new times or text on the same ExternalID.
type StagedEvent struct {
	ID           string    `json:"id" db:"id"`
	ConnectionID string    `json:"connection_id" db:"connection_id"`
	CalendarID   string    `json:"calendar_id" db:"calendar_id"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	StartAt      time.Time `json:"start_at" db:"start_at"`
	EndAt        time.Time `json:"end_at" db:"end_at"`

	// TimeZone is the IANA (or Windows) zone the event was authored in.
	// May be empty or invalid.
	TimeZone    string    `json:"time_zone" db:"time_zone"`
	Summary     string    `json:"summary" db:"summary"`
	Description string    `json:"description" db:"description"`
	Busy        bool      `json:"busy" db:"busy"`
	Synthetic   bool      `json:"synthetic" db:"synthetic"`
	Deleted     bool      `json:"deleted" db:"deleted"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields every consumer relies on.
func (e StagedEvent) Validate() error {
	var errs []error
	if e.ConnectionID == "" {
		errs = append(errs, errors.New("missing connection id"))
	}
	if e.ExternalID == "" {
		errs = append(errs, errors.New("missing external event id"))
	}
	if e.StartAt.IsZero() {
		errs = append(errs, errors.New("missing start time"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid staged event %q: %w", e.ID, errors.Join(errs...))
	}
	return nil
}

// Reconcilable reports whether the event should produce a task at all.
func (e StagedEvent) Reconcilable() bool {
	return e.Busy && !e.Synthetic && !e.Deleted
}
