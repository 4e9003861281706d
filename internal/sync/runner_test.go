package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/calsync/internal/model"
	calsync "github.com/nhle/calsync/internal/sync"
	"github.com/nhle/calsync/tests/testutil"
)

func TestRunner_RunAll(t *testing.T) {
	db := testutil.NewTestStore(t)
	google := testutil.NewConnection(t, db, user, model.ProviderGoogle)
	apple := testutil.NewConnection(t, db, user, model.ProviderApple)

	testutil.Stage(t, db,
		testutil.Event(google.ID, "g-1", "Standup", testutil.UTC(2025, time.March, 3, 9, 0), 15*time.Minute),
		testutil.Event(apple.ID, "a-1", "Dentist", testutil.UTC(2025, time.March, 4, 14, 0), time.Hour),
	)

	runner := calsync.NewRunner(newEngine(db), []model.ConnectionConfig{
		{ID: google.ID, UserID: user, Provider: "google", Enabled: true},
		{ID: apple.ID, UserID: user, Provider: "apple", Enabled: true},
		{ID: "disabled", UserID: user, Provider: "google", Enabled: false},
		{ID: "stolen", UserID: "mallory", Provider: "google", Enabled: true},
	}, nil)

	runner.RunAll(context.Background())

	statuses := runner.GetStatuses()
	require.Len(t, statuses, 3)

	assert.Equal(t, google.ID, statuses[0].ConnectionID)
	assert.Equal(t, calsync.SyncIdle, statuses[0].State)
	assert.Equal(t, 1, statuses[0].LastResult.Created)
	assert.False(t, statuses[0].LastSync.IsZero())
	assert.NoError(t, statuses[0].Error)

	assert.Equal(t, calsync.SyncIdle, statuses[1].State)
	assert.Equal(t, 1, statuses[1].LastResult.Created)

	assert.Equal(t, "stolen", statuses[2].ConnectionID)
	assert.Equal(t, calsync.SyncError, statuses[2].State)
	assert.ErrorIs(t, statuses[2].Error, calsync.ErrUnauthorized)
	assert.True(t, statuses[2].LastSync.IsZero())

	// A second pass has nothing to do.
	runner.RunAll(context.Background())
	statuses = runner.GetStatuses()
	assert.Zero(t, statuses[0].LastResult.Created)
	assert.Equal(t, 1, statuses[0].LastResult.Skipped)
}

func TestRunner_BusyConnectionKeepsLastResult(t *testing.T) {
	db := testutil.NewTestStore(t)
	conn := testutil.NewConnection(t, db, user, model.ProviderGoogle)
	testutil.Stage(t, db,
		testutil.Event(conn.ID, "g-1", "Standup", testutil.UTC(2025, time.March, 3, 9, 0), 15*time.Minute),
	)

	locks := calsync.NewConnLocks()
	engine := calsync.New(db, calsync.Options{Locks: locks})
	runner := calsync.NewRunner(engine, []model.ConnectionConfig{
		{ID: conn.ID, UserID: user, Provider: "google", Enabled: true},
	}, nil)

	runner.RunAll(context.Background())
	first := runner.GetStatuses()[0]
	require.Equal(t, 1, first.LastResult.Created)

	unlock, ok := locks.TryLock(conn.ID)
	require.True(t, ok)
	defer unlock()

	runner.RunAll(context.Background())
	got := runner.GetStatuses()[0]
	assert.Equal(t, calsync.SyncIdle, got.State)
	assert.Equal(t, first.LastResult, got.LastResult)
	assert.True(t, first.LastSync.Equal(got.LastSync))
}

func TestRunner_InvalidProvider(t *testing.T) {
	db := testutil.NewTestStore(t)
	runner := calsync.NewRunner(newEngine(db), []model.ConnectionConfig{
		{ID: "c1", UserID: user, Provider: "myspace", Enabled: true},
	}, nil)

	runner.RunAll(context.Background())

	status := runner.GetStatuses()[0]
	assert.Equal(t, calsync.SyncError, status.State)
	assert.Error(t, status.Error)
}

func TestRunner_StartRejectsBadSchedule(t *testing.T) {
	db := testutil.NewTestStore(t)
	runner := calsync.NewRunner(newEngine(db), nil, nil)

	assert.Error(t, runner.Start("every now and then"))
	runner.Stop()

	require.NoError(t, runner.Start("@every 1h"))
	runner.Stop()
}

func TestSyncStateString(t *testing.T) {
	assert.Equal(t, "idle", calsync.SyncIdle.String())
	assert.Equal(t, "running", calsync.SyncRunning.String())
	assert.Equal(t, "error", calsync.SyncError.String())
	assert.Equal(t, "SyncState(9)", calsync.SyncState(9).String())
}
