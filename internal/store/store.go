package store

import (
	"context"
	"errors"

	"github.com/nhle/calsync/internal/model"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Queries is the persistence port the reconciliation engine works against.
// It is implemented by the store itself and by the transaction handle passed
// to WithTx, so the same code runs inside and outside a transaction.
type Queries interface {
	// === Connections ===

	CreateConnection(ctx context.Context, conn model.Connection) (model.Connection, error)
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
	ConnectionBelongsToUser(ctx context.Context, connectionID, userID string) (bool, error)

	// === Staged events ===

	UpsertStagedEvent(ctx context.Context, ev model.StagedEvent) error
	// ListActiveEvents returns busy, non-synthetic, non-deleted events for
	// the connection. A non-empty calendarIDs restricts the calendars.
	ListActiveEvents(ctx context.Context, connectionID string, calendarIDs []string) ([]model.StagedEvent, error)
	// ListDeletedEventIDs returns external ids of staged events flagged as
	// deleted upstream.
	ListDeletedEventIDs(ctx context.Context, connectionID string) ([]string, error)
	DeleteStagedEvents(ctx context.Context, connectionID string, externalIDs []string) (int64, error)
	// FlagStagedEventsDeleted marks existing staged rows as deleted so a
	// later run retries their deletion.
	FlagStagedEventsDeleted(ctx context.Context, connectionID string, externalIDs []string) (int64, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	SetTaskDetached(ctx context.Context, id string, detached bool) error
	// ListCalendarTasks returns every calendar-derived task of the user on
	// the connection, detached ones included, with schedules loaded.
	ListCalendarTasks(ctx context.Context, connectionID, userID string) ([]model.Task, error)
	// FindTasksByEventID returns the calendar tasks derived from one
	// external event, scoped to the connection and user.
	FindTasksByEventID(ctx context.Context, connectionID, userID, externalID string) ([]model.Task, error)
	MaxSortOrder(ctx context.Context, userID string) (int, error)

	// === Schedules ===

	CreateSchedule(ctx context.Context, sched model.TaskSchedule) (model.TaskSchedule, error)
	UpdateSchedule(ctx context.Context, sched model.TaskSchedule) error
	DeleteSchedule(ctx context.Context, id string) error
	DeleteSchedulesForTask(ctx context.Context, taskID string) (int64, error)
	GetSchedulesForTask(ctx context.Context, taskID string) ([]model.TaskSchedule, error)

	// === Links ===

	UpsertLink(ctx context.Context, link model.CalendarEventLink) error
	DeleteLinksForTask(ctx context.Context, taskID string) (int64, error)
	GetLinksForEvent(ctx context.Context, connectionID, externalID string) ([]model.CalendarEventLink, error)
}

// Store is a Queries backed by a database that can run a function inside
// a transaction.
type Store interface {
	Queries

	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}
