// Package sync reconciles staged calendar events into tasks and schedules.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/schedule"
	"github.com/nhle/calsync/internal/store"
	"github.com/nhle/calsync/internal/timezone"
)

var (
	// ErrUnauthorized is returned when the connection is not owned by the
	// requesting user. Nothing is processed.
	ErrUnauthorized = errors.New("connection does not belong to user")

	// ErrSyncInProgress is returned when another reconciliation holds the
	// connection.
	ErrSyncInProgress = errors.New("sync already in progress for connection")
)

// defaultEventTimeout bounds the writes made for a single event.
const defaultEventTimeout = 10 * time.Second

// untitledEventName is used for events without a summary.
const untitledEventName = "Busy"

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger

	// DefaultTimeZone applies to events that carry no zone.
	DefaultTimeZone string

	// MaxDurationMinutes caps event durations. Zero means one day.
	MaxDurationMinutes int

	// EventTimeout bounds the writes for one event. Zero means 10s.
	EventTimeout time.Duration

	// Locks is shared between engines that must exclude each other.
	// Nil gives the engine its own set.
	Locks *ConnLocks
}

// Engine converts staged calendar events into tasks and keeps them in sync
// across runs.
type Engine struct {
	store        store.Store
	logger       *slog.Logger
	locks        *ConnLocks
	defaultZone  string
	maxDuration  int
	eventTimeout time.Duration
}

// New creates an Engine backed by s.
func New(s store.Store, opts Options) *Engine {
	e := &Engine{
		store:        s,
		logger:       opts.Logger,
		locks:        opts.Locks,
		defaultZone:  opts.DefaultTimeZone,
		maxDuration:  opts.MaxDurationMinutes,
		eventTimeout: opts.EventTimeout,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.locks == nil {
		e.locks = NewConnLocks()
	}
	if e.maxDuration <= 0 {
		e.maxDuration = 24 * 60
	}
	if e.eventTimeout <= 0 {
		e.eventTimeout = defaultEventTimeout
	}
	return e
}

// Request identifies what to reconcile.
type Request struct {
	ConnectionID string
	UserID       string
	Provider     model.Provider

	// CalendarIDs restricts which staged calendars are considered.
	// Empty means all of them.
	CalendarIDs []string

	// DeletedExternalIDs lists events the provider reported as deleted.
	DeletedExternalIDs []string
}

func (r Request) validate() error {
	switch {
	case r.ConnectionID == "":
		return errors.New("missing connection id")
	case r.UserID == "":
		return errors.New("missing user id")
	case r.Provider.IsZero():
		return errors.New("missing provider")
	}
	return nil
}

// Reconcile brings the user's calendar tasks for a connection in line with
// the staged events, then removes what was deleted upstream.
//
// Only an invalid request, an ownership failure, lock contention or
// cancellation are returned as errors. Every other failure is recorded in
// the Result and processing carries on.
func (e *Engine) Reconcile(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, fmt.Errorf("invalid reconcile request: %w", err)
	}

	owned, err := e.store.ConnectionBelongsToUser(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("checking connection ownership: %w", err)
	}
	if !owned {
		return Result{}, fmt.Errorf("%w: connection %s", ErrUnauthorized, req.ConnectionID)
	}

	unlock, ok := e.locks.TryLock(req.ConnectionID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrSyncInProgress, req.ConnectionID)
	}
	defer unlock()

	log := e.logger.With(
		slog.String("connection_id", req.ConnectionID),
		slog.String("provider", req.Provider.String()),
	)
	start := time.Now()
	log.Info("reconcile starting", slog.Int("calendars", len(req.CalendarIDs)))

	var res Result

	deleted := e.collectDeletions(ctx, req, &res)

	st, err := e.loadState(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		log.Error("loading existing state failed", slog.Any("error", err))
		res.addError("%v", err)
		return res, nil
	}

	events, err := e.store.ListActiveEvents(ctx, req.ConnectionID, req.CalendarIDs)
	if err != nil {
		log.Error("listing staged events failed", slog.Any("error", err))
		res.addError("%v", err)
		return res, nil
	}

	deletedSet := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		deletedSet[id] = true
	}

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			log.Warn("reconcile canceled", slog.Any("error", err))
			res.addError("reconcile canceled: %v", err)
			return res, err
		}
		if deletedSet[ev.ExternalID] {
			continue
		}
		e.reconcileEvent(ctx, log, req, st, ev, &res)
	}

	e.propagateDeletions(ctx, log, req, deleted, &res)

	log.Info("reconcile complete",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", res.Skipped),
		slog.Int("deleted", res.Deleted),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// collectDeletions merges the caller's deletion list with staged events
// flagged as deleted, deduplicated and sorted.
func (e *Engine) collectDeletions(ctx context.Context, req Request, res *Result) []string {
	ids := slices.Clone(req.DeletedExternalIDs)

	flagged, err := e.store.ListDeletedEventIDs(ctx, req.ConnectionID)
	if err != nil {
		e.logger.Error("listing deleted staged events failed",
			slog.String("connection_id", req.ConnectionID),
			slog.Any("error", err),
		)
		res.addError("%v", err)
	}
	ids = append(ids, flagged...)

	ids = slices.DeleteFunc(ids, func(id string) bool { return strings.TrimSpace(id) == "" })
	slices.Sort(ids)
	return slices.Compact(ids)
}

// derived is what a staged event should look like as a task.
type derived struct {
	name        string
	details     string
	duration    int
	descriptors []schedule.Descriptor
}

// derive computes the task content and schedule layout for ev.
func (e *Engine) derive(log *slog.Logger, ev model.StagedEvent) derived {
	zone := ev.TimeZone
	if strings.TrimSpace(zone) == "" {
		zone = e.defaultZone
	}
	loc, ok := timezone.Resolve(zone)
	if !ok && zone != "" {
		log.Debug("unknown time zone, using fallback",
			slog.String("external_id", ev.ExternalID),
			slog.String("time_zone", zone),
			slog.String("fallback", loc.String()),
		)
	}

	duration := schedule.Duration(ev.StartAt, ev.EndAt, e.maxDuration)
	descriptors := schedule.Split(
		timezone.Wall(ev.StartAt, loc),
		timezone.Wall(ev.EndAt, loc),
		duration,
	)

	name := strings.TrimSpace(ev.Summary)
	if name == "" {
		name = untitledEventName
	}

	return derived{
		name:        name,
		details:     ev.Description,
		duration:    duration,
		descriptors: descriptors,
	}
}

// reconcileEvent applies one staged event. Failures are recorded in res.
func (e *Engine) reconcileEvent(
	ctx context.Context,
	log *slog.Logger,
	req Request,
	st *state,
	ev model.StagedEvent,
	res *Result,
) {
	if err := ev.Validate(); err != nil {
		log.Warn("skipping invalid staged event", slog.Any("error", err))
		res.failEvent(ev.ExternalID, err)
		return
	}
	if !ev.Reconcilable() {
		return
	}

	if st.detached[ev.ExternalID] {
		log.Debug("task detached, leaving untouched", slog.String("external_id", ev.ExternalID))
		res.Skipped++
		return
	}

	want := e.derive(log, ev)

	ctx, cancel := context.WithTimeout(ctx, e.eventTimeout)
	defer cancel()

	existing, found := st.tasks[ev.ExternalID]
	if !found {
		task, err := e.createTask(ctx, req, st, ev, want)
		if err != nil {
			log.Error("creating task failed",
				slog.String("external_id", ev.ExternalID),
				slog.Any("error", err),
			)
			res.failEvent(ev.ExternalID, err)
			return
		}
		st.tasks[ev.ExternalID] = task
		res.Created++
		return
	}

	task, changed, err := e.updateTask(ctx, req, existing, ev, want)
	if err != nil {
		log.Error("updating task failed",
			slog.String("external_id", ev.ExternalID),
			slog.String("task_id", existing.ID),
			slog.Any("error", err),
		)
		res.failEvent(ev.ExternalID, err)
		return
	}
	if !changed {
		res.Skipped++
		return
	}
	st.tasks[ev.ExternalID] = task
	res.Updated++
}

// createTask inserts the task, its schedules and links in one transaction.
func (e *Engine) createTask(
	ctx context.Context,
	req Request,
	st *state,
	ev model.StagedEvent,
	want derived,
) (model.Task, error) {
	var created model.Task

	err := e.store.WithTx(ctx, func(q store.Queries) error {
		connectionID := req.ConnectionID
		eventID := ev.ExternalID

		task, err := q.CreateTask(ctx, model.Task{
			UserID:          req.UserID,
			ConnectionID:    &connectionID,
			Name:            want.name,
			Details:         want.details,
			DurationMinutes: want.duration,
			IsCalendarEvent: true,
			CalendarEventID: &eventID,
			SortOrder:       st.nextSortOrder(),
		})
		if err != nil {
			return err
		}

		for _, d := range want.descriptors {
			sched, err := q.CreateSchedule(ctx, scheduleFor(task.ID, d))
			if err != nil {
				return err
			}
			task.Schedules = append(task.Schedules, sched)
		}

		if err := e.writeLinks(ctx, q, req, ev.ExternalID, task); err != nil {
			return err
		}

		created = task
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// updateTask brings an attached task and its schedules in line with want.
// Nothing is written when the task already matches.
func (e *Engine) updateTask(
	ctx context.Context,
	req Request,
	existing model.Task,
	ev model.StagedEvent,
	want derived,
) (model.Task, bool, error) {
	task := existing
	task.Name = want.name
	task.Details = want.details
	task.DurationMinutes = want.duration
	taskChanged := task.Name != existing.Name ||
		task.Details != existing.Details ||
		task.DurationMinutes != existing.DurationMinutes

	plan := planSchedules(existing.Schedules, want.descriptors)
	if !taskChanged && plan.empty() {
		return existing, false, nil
	}

	err := e.store.WithTx(ctx, func(q store.Queries) error {
		if taskChanged {
			if err := q.UpdateTask(ctx, task); err != nil {
				return err
			}
		}

		for _, s := range plan.update {
			if err := q.UpdateSchedule(ctx, s); err != nil {
				return err
			}
		}
		for _, s := range plan.remove {
			if err := q.DeleteSchedule(ctx, s.ID); err != nil {
				return err
			}
		}

		kept := plan.keep
		for _, d := range plan.create {
			sched, err := q.CreateSchedule(ctx, scheduleFor(task.ID, d))
			if err != nil {
				return err
			}
			kept = append(kept, sched)
		}
		sortSchedules(kept)
		task.Schedules = kept

		return e.writeLinks(ctx, q, req, ev.ExternalID, task)
	})
	if err != nil {
		return model.Task{}, false, err
	}
	return task, true, nil
}

// writeLinks records event-to-schedule links for providers that push back.
func (e *Engine) writeLinks(
	ctx context.Context,
	q store.Queries,
	req Request,
	externalID string,
	task model.Task,
) error {
	if !req.Provider.WritesLinks() {
		return nil
	}
	for _, s := range task.Schedules {
		err := q.UpsertLink(ctx, model.CalendarEventLink{
			ConnectionID: req.ConnectionID,
			ExternalID:   externalID,
			TaskID:       task.ID,
			ScheduleID:   s.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func scheduleFor(taskID string, d schedule.Descriptor) model.TaskSchedule {
	return model.TaskSchedule{
		TaskID:          taskID,
		Date:            d.Date,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		DurationMinutes: d.DurationMinutes,
		Status:          model.ScheduleStatusScheduled,
	}
}
