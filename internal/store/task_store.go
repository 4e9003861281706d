package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/calsync/internal/model"
)

const taskColumns = `
	id, user_id, connection_id, plan_id, name, details, duration_minutes,
	is_calendar_event, calendar_event_id, detached, sort_order,
	created_at, updated_at`

// CreateTask inserts a new task and returns it with generated fields set.
// A zero SortOrder is replaced with the user's max sort_order plus one.
func (q *queries) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if strings.TrimSpace(task.Name) == "" {
		return model.Task{}, fmt.Errorf("task name must not be empty")
	}
	if task.UserID == "" {
		return model.Task{}, fmt.Errorf("task user must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	if task.SortOrder == 0 {
		maxOrder, err := q.MaxSortOrder(ctx, task.UserID)
		if err != nil {
			return model.Task{}, err
		}
		task.SortOrder = maxOrder + 1
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.ConnectionID, task.PlanID,
		task.Name, task.Details, task.DurationMinutes,
		boolToInt(task.IsCalendarEvent), task.CalendarEventID,
		boolToInt(task.Detached), task.SortOrder,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

// UpdateTask updates the mutable content of a task by ID. Ownership,
// provenance and the detached flag are not touched.
func (q *queries) UpdateTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return fmt.Errorf("task name must not be empty")
	}

	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET
			name = ?, details = ?, duration_minutes = ?,
			sort_order = ?, updated_at = ?
		WHERE id = ?`,
		task.Name, task.Details, task.DurationMinutes,
		task.SortOrder, time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task by ID. Cascades to task_schedules and
// calendar_event_links.
func (q *queries) DeleteTask(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTaskByID retrieves a single task by ID, including its schedules.
func (q *queries) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := sqlx.GetContext(ctx, q.db, &task,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	schedules, err := q.GetSchedulesForTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Schedules = schedules

	return &task, nil
}

// SetTaskDetached sets or clears the detached flag of a task.
func (q *queries) SetTaskDetached(ctx context.Context, id string, detached bool) error {
	result, err := q.db.ExecContext(ctx,
		"UPDATE tasks SET detached = ?, updated_at = ? WHERE id = ?",
		boolToInt(detached), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting detached on task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListCalendarTasks returns the calendar-derived tasks a user owns on a
// connection, with their schedules.
func (q *queries) ListCalendarTasks(
	ctx context.Context,
	connectionID, userID string,
) ([]model.Task, error) {
	var tasks []model.Task
	err := sqlx.SelectContext(ctx, q.db, &tasks, `
		SELECT `+taskColumns+` FROM tasks
		WHERE connection_id = ? AND user_id = ? AND is_calendar_event = 1
		ORDER BY sort_order, id`,
		connectionID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying calendar tasks for connection %s: %w", connectionID, err)
	}
	if err := q.attachSchedules(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindTasksByEventID returns the calendar tasks derived from externalID.
func (q *queries) FindTasksByEventID(
	ctx context.Context,
	connectionID, userID, externalID string,
) ([]model.Task, error) {
	var tasks []model.Task
	err := sqlx.SelectContext(ctx, q.db, &tasks, `
		SELECT `+taskColumns+` FROM tasks
		WHERE connection_id = ? AND user_id = ?
			AND is_calendar_event = 1 AND calendar_event_id = ?
		ORDER BY id`,
		connectionID, userID, externalID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for event %s: %w", externalID, err)
	}
	return tasks, nil
}

// MaxSortOrder returns the highest sort_order among the user's tasks, or 0.
func (q *queries) MaxSortOrder(ctx context.Context, userID string) (int, error) {
	var maxOrder int
	err := sqlx.GetContext(ctx, q.db, &maxOrder,
		"SELECT COALESCE(MAX(sort_order), 0) FROM tasks WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("getting max sort_order: %w", err)
	}
	return maxOrder, nil
}

// attachSchedules loads schedules for tasks in one query.
func (q *queries) attachSchedules(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	query, args, err := sqlx.In(
		"SELECT "+scheduleColumns+" FROM task_schedules WHERE task_id IN (?) ORDER BY date, start_time, id",
		ids,
	)
	if err != nil {
		return fmt.Errorf("expanding task ids: %w", err)
	}

	var schedules []model.TaskSchedule
	if err := sqlx.SelectContext(ctx, q.db, &schedules, q.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("querying schedules: %w", err)
	}

	for _, s := range schedules {
		i := index[s.TaskID]
		tasks[i].Schedules = append(tasks[i].Schedules, s)
	}
	return nil
}
