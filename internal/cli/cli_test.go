package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/calsync/internal/store"
	appsync "github.com/nhle/calsync/internal/sync"
)

const lateCall = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//calsync//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:late-1\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250101T233000Z\r\n" +
	"DTEND:20250102T001500Z\r\n" +
	"SUMMARY:Late call\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type harness struct {
	t       *testing.T
	dir     string
	config  string
	db      string
	icsFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	h := &harness{
		t:       t,
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		db:      filepath.Join(dir, "calsync.db"),
		icsFile: filepath.Join(dir, "calendar.ics"),
	}
	require.NoError(t, os.WriteFile(h.icsFile, []byte(lateCall), 0o644))
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--config", h.config, "--db", h.db))

	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "calsync %s", strings.Join(args, " "))
	return out
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("connection", "add", "--id", "work", "--user", "alice", "--provider", "google")
	assert.Equal(t, "work\n", out)

	out = h.mustRun("stage", "--connection", "work", "--file", h.icsFile)
	assert.Equal(t, "staged 1, cancelled 0, skipped 0\n", out)

	out = h.mustRun("reconcile", "--connection", "work", "--user", "alice")
	assert.Equal(t, "created 1, updated 0, skipped 0, deleted 0\n", out)

	out = h.mustRun("reconcile", "--connection", "work", "--user", "alice", "--json")
	var res appsync.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, appsync.Result{Skipped: 1}, res)

	_, err := h.run("reconcile", "--connection", "work", "--user", "mallory")
	assert.ErrorIs(t, err, appsync.ErrUnauthorized)

	taskID := h.onlyTask()
	out = h.mustRun("detach", "--task", taskID)
	assert.Equal(t, "task "+taskID+" detached\n", out)

	out = h.mustRun("reconcile", "--connection", "work", "--user", "alice", "--deleted", "late-1")
	assert.Equal(t, "created 0, updated 0, skipped 0, deleted 0\n", out)
	assert.Equal(t, taskID, h.onlyTask())

	h.mustRun("detach", "--task", taskID, "--undo")
	h.mustRun("stage", "--connection", "work", "--file", h.icsFile)
	out = h.mustRun("reconcile", "--connection", "work", "--user", "alice", "--deleted", "late-1")
	assert.Equal(t, "created 0, updated 0, skipped 0, deleted 1\n", out)
}

// onlyTask returns the id of the single calendar task on connection work.
func (h *harness) onlyTask() string {
	h.t.Helper()

	s, err := store.NewSQLiteStore(h.db)
	require.NoError(h.t, err)
	defer s.Close()

	tasks, err := s.ListCalendarTasks(context.Background(), "work", "alice")
	require.NoError(h.t, err)
	require.Len(h.t, tasks, 1)
	require.Len(h.t, tasks[0].Schedules, 2)
	return tasks[0].ID
}

func TestConnectionAdd_RequiresFlags(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("connection", "add", "--user", "alice")
	assert.Error(t, err)

	_, err = h.run("connection", "add", "--user", "alice", "--provider", "myspace")
	assert.Error(t, err)
}

func TestStage_UnknownConnection(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("stage", "--connection", "nope", "--file", h.icsFile)
	assert.Error(t, err)
}

func TestDetach_UnknownTask(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("detach", "--task", "nope")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("config", "path")
	assert.Equal(t, h.config+"\n", out)

	h.mustRun("config", "init")
	_, err := os.Stat(h.config)
	require.NoError(t, err)

	out = h.mustRun("config", "show")
	assert.Contains(t, out, "default_time_zone: UTC")
	assert.Contains(t, out, "max_duration_minutes: 1440")
	assert.Contains(t, out, h.db)
}
