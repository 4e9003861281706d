package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/calsync/internal/model"
)

// UpsertLink records that an external event produced a task and schedule.
// Re-linking the same (connection, event, schedule) is a no-op apart from
// repointing the task.
func (q *queries) UpsertLink(ctx context.Context, link model.CalendarEventLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	link.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO calendar_event_links (
			id, connection_id, external_id, task_id, schedule_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(connection_id, external_id, schedule_id) DO UPDATE SET
			task_id = excluded.task_id`,
		link.ID, link.ConnectionID, link.ExternalID,
		link.TaskID, link.ScheduleID, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting link for event %s: %w", link.ExternalID, err)
	}
	return nil
}

// DeleteLinksForTask removes every link pointing at a task.
func (q *queries) DeleteLinksForTask(ctx context.Context, taskID string) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM calendar_event_links WHERE task_id = ?", taskID)
	if err != nil {
		return 0, fmt.Errorf("deleting links for task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// GetLinksForEvent retrieves the links an external event produced.
func (q *queries) GetLinksForEvent(
	ctx context.Context,
	connectionID, externalID string,
) ([]model.CalendarEventLink, error) {
	var links []model.CalendarEventLink
	err := sqlx.SelectContext(ctx, q.db, &links, `
		SELECT id, connection_id, external_id, task_id, schedule_id, created_at
		FROM calendar_event_links
		WHERE connection_id = ? AND external_id = ?
		ORDER BY created_at, id`,
		connectionID, externalID)
	if err != nil {
		return nil, fmt.Errorf("querying links for event %s: %w", externalID, err)
	}
	return links, nil
}
