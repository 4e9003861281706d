package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/store"
	"github.com/nhle/calsync/tests/testutil"
)

func strptr(s string) *string { return &s }

func TestConnectionOwnership(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	conn := testutil.NewConnection(t, s, "alice", model.ProviderGoogle)

	owned, err := s.ConnectionBelongsToUser(ctx, conn.ID, "alice")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = s.ConnectionBelongsToUser(ctx, conn.ID, "mallory")
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = s.ConnectionBelongsToUser(ctx, "missing", "alice")
	require.NoError(t, err)
	assert.False(t, owned)

	got, err := s.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", got.Provider)

	_, err = s.GetConnection(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateConnection_RejectsUnknownProvider(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.CreateConnection(context.Background(), model.Connection{UserID: "alice", Provider: "myspace"})
	assert.Error(t, err)
}

func TestStagedEvents_UpsertAndFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	conn := testutil.NewConnection(t, s, "alice", model.ProviderGoogle)

	start := testutil.UTC(2025, time.March, 3, 9, 0)

	busy := testutil.Event(conn.ID, "evt-busy", "Standup", start, 30*time.Minute)
	free := testutil.Event(conn.ID, "evt-free", "Lunch", start.Add(3*time.Hour), time.Hour)
	free.Busy = false
	synthetic := testutil.Event(conn.ID, "evt-synthetic", "Focus", start.Add(5*time.Hour), time.Hour)
	synthetic.Synthetic = true
	gone := testutil.Event(conn.ID, "evt-gone", "Cancelled", start.Add(6*time.Hour), time.Hour)
	gone.Deleted = true
	other := testutil.Event(conn.ID, "evt-other", "Team offsite", start.Add(time.Hour), time.Hour)
	other.CalendarID = "team"

	testutil.Stage(t, s, busy, free, synthetic, gone, other)

	events, err := s.ListActiveEvents(ctx, conn.ID, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-busy", events[0].ExternalID)
	assert.Equal(t, "evt-other", events[1].ExternalID)
	assert.True(t, events[0].StartAt.Equal(start))
	assert.True(t, events[0].EndAt.Equal(start.Add(30*time.Minute)))

	events, err = s.ListActiveEvents(ctx, conn.ID, []string{"team"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-other", events[0].ExternalID)

	deleted, err := s.ListDeletedEventIDs(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-gone"}, deleted)

	// Re-staging the same external id updates in place and keeps the row id.
	first := events[0].ID
	other.Summary = "Team offsite (moved)"
	testutil.Stage(t, s, other)

	events, err = s.ListActiveEvents(ctx, conn.ID, []string{"team"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, first, events[0].ID)
	assert.Equal(t, "Team offsite (moved)", events[0].Summary)

	flagged, err := s.FlagStagedEventsDeleted(ctx, conn.ID, []string{"evt-other", "unknown"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, flagged)

	events, err = s.ListActiveEvents(ctx, conn.ID, []string{"team"})
	require.NoError(t, err)
	assert.Empty(t, events)

	deleted, err = s.ListDeletedEventIDs(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-gone", "evt-other"}, deleted)

	n, err := s.DeleteStagedEvents(ctx, conn.ID, []string{"evt-busy", "evt-gone", "unknown"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.DeleteStagedEvents(ctx, conn.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertStagedEvent_Validates(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.UpsertStagedEvent(context.Background(), model.StagedEvent{ConnectionID: "c"})
	assert.Error(t, err)
}

func TestTasksAndSchedules(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	conn := testutil.NewConnection(t, s, "alice", model.ProviderGoogle)

	task, err := s.CreateTask(ctx, model.Task{
		UserID:          "alice",
		ConnectionID:    &conn.ID,
		Name:            "Standup",
		DurationMinutes: 15,
		IsCalendarEvent: true,
		CalendarEventID: strptr("evt-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, task.SortOrder)

	second, err := s.CreateTask(ctx, model.Task{UserID: "alice", Name: "Write report"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SortOrder)

	sched, err := s.CreateSchedule(ctx, model.TaskSchedule{
		TaskID:          task.ID,
		Date:            "2025-03-03",
		StartTime:       "09:00",
		EndTime:         strptr("09:15"),
		DurationMinutes: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusScheduled, sched.Status)

	open, err := s.CreateSchedule(ctx, model.TaskSchedule{
		TaskID:          second.ID,
		Date:            "2025-03-04",
		StartTime:       "08:00",
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCalendarEvent)
	assert.Equal(t, "evt-1", got.EventID())
	assert.Nil(t, got.PlanID)
	require.Len(t, got.Schedules, 1)
	require.NotNil(t, got.Schedules[0].EndTime)
	assert.Equal(t, "09:15", *got.Schedules[0].EndTime)

	plain, err := s.GetTaskByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.CalendarEventID)
	require.Len(t, plain.Schedules, 1)
	assert.Nil(t, plain.Schedules[0].EndTime)
	assert.Equal(t, open.ID, plain.Schedules[0].ID)

	tasks, err := s.ListCalendarTasks(ctx, conn.ID, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	require.Len(t, tasks[0].Schedules, 1)

	tasks, err = s.ListCalendarTasks(ctx, conn.ID, "mallory")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	found, err := s.FindTasksByEventID(ctx, conn.ID, "alice", "evt-1")
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Update in place keeps the id.
	sched.Date = "2025-03-05"
	sched.EndTime = nil
	require.NoError(t, s.UpdateSchedule(ctx, sched))

	scheds, err := s.GetSchedulesForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, scheds, 1)
	assert.Equal(t, sched.ID, scheds[0].ID)
	assert.Equal(t, "2025-03-05", scheds[0].Date)
	assert.Nil(t, scheds[0].EndTime)

	require.NoError(t, s.SetTaskDetached(ctx, task.ID, true))
	got, err = s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Detached)

	// Deleting a task cascades to its schedules.
	require.NoError(t, s.DeleteTask(ctx, task.ID))
	scheds, err = s.GetSchedulesForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, scheds)

	_, err = s.GetTaskByID(ctx, task.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteTask(ctx, task.ID), store.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateSchedule(ctx, sched), store.ErrNotFound))
}

func TestCreateTask_DuplicateCalendarEventRejected(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	conn := testutil.NewConnection(t, s, "alice", model.ProviderGoogle)

	mk := func() model.Task {
		return model.Task{
			UserID:          "alice",
			ConnectionID:    &conn.ID,
			Name:            "Standup",
			IsCalendarEvent: true,
			CalendarEventID: strptr("evt-1"),
		}
	}

	_, err := s.CreateTask(ctx, mk())
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, mk())
	assert.Error(t, err)
}

func TestLinks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	conn := testutil.NewConnection(t, s, "alice", model.ProviderOutlook)

	task, err := s.CreateTask(ctx, model.Task{UserID: "alice", Name: "Review"})
	require.NoError(t, err)
	sched, err := s.CreateSchedule(ctx, model.TaskSchedule{
		TaskID: task.ID, Date: "2025-03-03", StartTime: "10:00", DurationMinutes: 30,
	})
	require.NoError(t, err)

	link := model.CalendarEventLink{
		ConnectionID: conn.ID,
		ExternalID:   "evt-1",
		TaskID:       task.ID,
		ScheduleID:   sched.ID,
	}
	require.NoError(t, s.UpsertLink(ctx, link))
	require.NoError(t, s.UpsertLink(ctx, link))

	links, err := s.GetLinksForEvent(ctx, conn.ID, "evt-1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, sched.ID, links[0].ScheduleID)

	n, err := s.DeleteLinksForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.CreateTask(ctx, model.Task{ID: "t-1", UserID: "alice", Name: "Draft"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetTaskByID(ctx, "t-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(q store.Queries) error {
		_, err := q.CreateTask(ctx, model.Task{ID: "t-2", UserID: "alice", Name: "Draft"})
		return err
	})
	require.NoError(t, err)

	_, err = s.GetTaskByID(ctx, "t-2")
	assert.NoError(t, err)
}
