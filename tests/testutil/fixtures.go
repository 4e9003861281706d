package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/store"
)

// NewConnection creates a calendar connection for userID.
func NewConnection(t *testing.T, s store.Queries, userID string, provider model.Provider) model.Connection {
	t.Helper()

	conn, err := s.CreateConnection(Ctx(), model.Connection{
		UserID:   userID,
		Provider: provider.String(),
	})
	require.NoError(t, err, "creating connection")
	return conn
}

// Event builds a busy staged event on connectionID running from start for d.
func Event(connectionID, externalID, summary string, start time.Time, d time.Duration) model.StagedEvent {
	return model.StagedEvent{
		ConnectionID: connectionID,
		CalendarID:   "primary",
		ExternalID:   externalID,
		StartAt:      start,
		EndAt:        start.Add(d),
		TimeZone:     "UTC",
		Summary:      summary,
		Busy:         true,
	}
}

// Stage upserts events into the staging table.
func Stage(t *testing.T, s store.Queries, events ...model.StagedEvent) {
	t.Helper()

	for _, ev := range events {
		require.NoError(t, s.UpsertStagedEvent(Ctx(), ev), "staging event %s", ev.ExternalID)
	}
}

// UTC is shorthand for a UTC time at minute precision.
func UTC(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}
