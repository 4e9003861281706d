package sync

import (
	"context"
	"fmt"

	"github.com/nhle/calsync/internal/model"
)

// state is what the connection already owns, indexed by external event id.
type state struct {
	// tasks holds attached calendar tasks that sync may update.
	tasks map[string]model.Task

	// detached holds event ids whose task the user decoupled.
	detached map[string]bool

	// sortOrder is the last display index handed out.
	sortOrder int
}

// loadState builds the current-state index for a connection and user.
func (e *Engine) loadState(ctx context.Context, connectionID, userID string) (*state, error) {
	tasks, err := e.store.ListCalendarTasks(ctx, connectionID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading calendar tasks: %w", err)
	}

	maxOrder, err := e.store.MaxSortOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading display order: %w", err)
	}

	st := &state{
		tasks:     make(map[string]model.Task, len(tasks)),
		detached:  make(map[string]bool),
		sortOrder: maxOrder,
	}
	for _, t := range tasks {
		id := t.EventID()
		if id == "" {
			continue
		}
		if t.Detached {
			st.detached[id] = true
			continue
		}
		st.tasks[id] = t
	}
	return st, nil
}

// nextSortOrder hands out the next display index.
func (s *state) nextSortOrder() int {
	s.sortOrder++
	return s.sortOrder
}
