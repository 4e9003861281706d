package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/calsync/internal/model"
)

const scheduleColumns = `
	id, task_id, date, start_time, end_time, duration_minutes, status,
	created_at, updated_at`

// CreateSchedule inserts a schedule row for a task.
func (q *queries) CreateSchedule(
	ctx context.Context,
	sched model.TaskSchedule,
) (model.TaskSchedule, error) {
	if sched.TaskID == "" {
		return model.TaskSchedule{}, fmt.Errorf("schedule task must not be empty")
	}
	if sched.ID == "" {
		sched.ID = uuid.New().String()
	}
	if sched.Status == "" {
		sched.Status = model.ScheduleStatusScheduled
	}
	now := time.Now().UTC()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO task_schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.TaskID, sched.Date, sched.StartTime, sched.EndTime,
		sched.DurationMinutes, sched.Status, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return model.TaskSchedule{}, fmt.Errorf("creating schedule for task %s: %w", sched.TaskID, err)
	}
	return sched, nil
}

// UpdateSchedule rewrites the date, times, duration and status of a
// schedule in place, keeping its id.
func (q *queries) UpdateSchedule(ctx context.Context, sched model.TaskSchedule) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE task_schedules SET
			date = ?, start_time = ?, end_time = ?,
			duration_minutes = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sched.Date, sched.StartTime, sched.EndTime,
		sched.DurationMinutes, sched.Status, time.Now().UTC(),
		sched.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule %s: %w", sched.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("schedule %s: %w", sched.ID, ErrNotFound)
	}
	return nil
}

// DeleteSchedule removes a schedule by ID.
func (q *queries) DeleteSchedule(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, "DELETE FROM task_schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSchedulesForTask removes every schedule of a task.
func (q *queries) DeleteSchedulesForTask(ctx context.Context, taskID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, "DELETE FROM task_schedules WHERE task_id = ?", taskID)
	if err != nil {
		return 0, fmt.Errorf("deleting schedules for task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// GetSchedulesForTask returns a task's schedules ordered by date and time.
func (q *queries) GetSchedulesForTask(
	ctx context.Context,
	taskID string,
) ([]model.TaskSchedule, error) {
	var schedules []model.TaskSchedule
	err := sqlx.SelectContext(ctx, q.db, &schedules, `
		SELECT `+scheduleColumns+` FROM task_schedules
		WHERE task_id = ?
		ORDER BY date, start_time, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying schedules for task %s: %w", taskID, err)
	}
	return schedules, nil
}
