package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/calsync/internal/model"
)

const stagedEventColumns = `
	id, connection_id, calendar_id, external_id,
	start_at, end_at, time_zone, summary, description,
	busy, synthetic, deleted, updated_at`

// UpsertStagedEvent inserts a staged event or replaces the one with the same
// (connection_id, external_id). The row id of an existing event is kept.
func (q *queries) UpsertStagedEvent(ctx context.Context, ev model.StagedEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.EndAt.IsZero() {
		ev.EndAt = ev.StartAt
	}
	ev.UpdatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO calendar_events (`+stagedEventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connection_id, external_id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			start_at    = excluded.start_at,
			end_at      = excluded.end_at,
			time_zone   = excluded.time_zone,
			summary     = excluded.summary,
			description = excluded.description,
			busy        = excluded.busy,
			synthetic   = excluded.synthetic,
			deleted     = excluded.deleted,
			updated_at  = excluded.updated_at`,
		ev.ID, ev.ConnectionID, ev.CalendarID, ev.ExternalID,
		ev.StartAt.UTC(), ev.EndAt.UTC(), ev.TimeZone, ev.Summary, ev.Description,
		boolToInt(ev.Busy), boolToInt(ev.Synthetic), boolToInt(ev.Deleted), ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting staged event %s: %w", ev.ExternalID, err)
	}
	return nil
}

// ListActiveEvents returns the reconcilable staged events of a connection
// ordered by start time.
func (q *queries) ListActiveEvents(
	ctx context.Context,
	connectionID string,
	calendarIDs []string,
) ([]model.StagedEvent, error) {
	query := `SELECT ` + stagedEventColumns + `
		FROM calendar_events
		WHERE connection_id = ? AND busy = 1 AND synthetic = 0 AND deleted = 0`
	args := []interface{}{connectionID}

	if len(calendarIDs) > 0 {
		query += " AND calendar_id IN (?)"
		args = append(args, calendarIDs)

		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("expanding calendar filter: %w", err)
		}
		query = q.db.Rebind(query)
	}
	query += " ORDER BY start_at, external_id"

	var events []model.StagedEvent
	if err := sqlx.SelectContext(ctx, q.db, &events, query, args...); err != nil {
		return nil, fmt.Errorf("querying staged events for connection %s: %w", connectionID, err)
	}
	return events, nil
}

// ListDeletedEventIDs returns the external ids of staged events that the
// provider reported as deleted.
func (q *queries) ListDeletedEventIDs(
	ctx context.Context,
	connectionID string,
) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, q.db, &ids, `
		SELECT external_id FROM calendar_events
		WHERE connection_id = ? AND deleted = 1
		ORDER BY external_id`, connectionID)
	if err != nil {
		return nil, fmt.Errorf("querying deleted events for connection %s: %w", connectionID, err)
	}
	return ids, nil
}

// DeleteStagedEvents removes staged rows by external id and returns how many
// were deleted.
func (q *queries) DeleteStagedEvents(
	ctx context.Context,
	connectionID string,
	externalIDs []string,
) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM calendar_events WHERE connection_id = ? AND external_id IN (?)",
		connectionID, externalIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("expanding staged event ids: %w", err)
	}

	result, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting staged events for connection %s: %w", connectionID, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// FlagStagedEventsDeleted sets deleted = 1 on the staged rows with the given
// external ids. Ids without a staged row are ignored.
func (q *queries) FlagStagedEventsDeleted(
	ctx context.Context,
	connectionID string,
	externalIDs []string,
) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"UPDATE calendar_events SET deleted = 1, updated_at = ? WHERE connection_id = ? AND external_id IN (?)",
		time.Now().UTC(), connectionID, externalIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("expanding staged event ids: %w", err)
	}

	result, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("flagging staged events for connection %s: %w", connectionID, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
