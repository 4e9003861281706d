package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/store"
)

// RegisterConnections makes sure every enabled connection in the config
// exists in the store, creating the missing ones under their configured id.
// A stored connection owned by a different user is left alone and reported.
func (a *App) RegisterConnections(ctx context.Context) (int, error) {
	registered := 0
	var errs []error

	for _, c := range a.Config.Connections {
		if !c.Enabled {
			continue
		}

		existing, err := a.Store.GetConnection(ctx, c.ID)
		switch {
		case err == nil:
			if existing.UserID != c.UserID {
				a.Logger.Warn("configured connection belongs to another user",
					slog.String("connection_id", c.ID),
					slog.String("configured_user", c.UserID),
				)
			}
			continue
		case !errors.Is(err, store.ErrNotFound):
			errs = append(errs, err)
			continue
		}

		_, err = a.Store.CreateConnection(ctx, model.Connection{
			ID:       c.ID,
			UserID:   c.UserID,
			Provider: c.Provider,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("registering connection %s: %w", c.ID, err))
			continue
		}
		a.Logger.Info("registered connection",
			slog.String("connection_id", c.ID),
			slog.String("provider", c.Provider),
		)
		registered++
	}

	return registered, errors.Join(errs...)
}
