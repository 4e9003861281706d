package sync

import (
	"context"
	"log/slog"
)

// propagateDeletions removes the tasks, schedules and links derived from
// events deleted upstream, then drops the staged rows. Deletion is hard and
// scoped to the request's connection and user. Detached tasks survive.
// Each step is attempted even when an earlier one failed. When a task
// could not be removed its staged row is kept and flagged deleted, so the
// next run retries it.
func (e *Engine) propagateDeletions(
	ctx context.Context,
	log *slog.Logger,
	req Request,
	externalIDs []string,
	res *Result,
) {
	if len(externalIDs) == 0 {
		return
	}

	var done, retry []string
	for _, id := range externalIDs {
		if err := ctx.Err(); err != nil {
			res.addError("deletion canceled: %v", err)
			break
		}

		tasks, err := e.store.FindTasksByEventID(ctx, req.ConnectionID, req.UserID, id)
		if err != nil {
			log.Error("finding tasks for deleted event failed",
				slog.String("external_id", id),
				slog.Any("error", err),
			)
			res.failEvent(id, err)
			retry = append(retry, id)
			continue
		}

		removedAll := true
		for _, t := range tasks {
			if t.Detached {
				log.Debug("keeping detached task of deleted event",
					slog.String("external_id", id),
					slog.String("task_id", t.ID),
				)
				continue
			}

			if _, err := e.store.DeleteSchedulesForTask(ctx, t.ID); err != nil {
				log.Error("deleting schedules failed",
					slog.String("external_id", id),
					slog.String("task_id", t.ID),
					slog.Any("error", err),
				)
				res.failEvent(id, err)
			}

			if _, err := e.store.DeleteLinksForTask(ctx, t.ID); err != nil {
				log.Error("deleting links failed",
					slog.String("external_id", id),
					slog.String("task_id", t.ID),
					slog.Any("error", err),
				)
				res.failEvent(id, err)
			}

			if err := e.store.DeleteTask(ctx, t.ID); err != nil {
				log.Error("deleting task failed",
					slog.String("external_id", id),
					slog.String("task_id", t.ID),
					slog.Any("error", err),
				)
				res.failEvent(id, err)
				removedAll = false
				continue
			}
			res.Deleted++
		}

		if removedAll {
			done = append(done, id)
		} else {
			retry = append(retry, id)
		}
	}

	// Staged bookkeeping for ids already handled runs even after cancellation.
	cleanup := context.WithoutCancel(ctx)

	if len(retry) > 0 {
		flagged, err := e.store.FlagStagedEventsDeleted(cleanup, req.ConnectionID, retry)
		if err != nil {
			log.Error("flagging staged events for retry failed", slog.Any("error", err))
			res.addError("%v", err)
		} else {
			log.Debug("kept staged events for retry",
				slog.Int("ids", len(retry)),
				slog.Int64("flagged", flagged),
			)
		}
	}

	removed, err := e.store.DeleteStagedEvents(cleanup, req.ConnectionID, done)
	if err != nil {
		log.Error("removing staged events failed", slog.Any("error", err))
		res.addError("%v", err)
		return
	}
	log.Debug("removed staged events", slog.Int64("count", removed))
}
