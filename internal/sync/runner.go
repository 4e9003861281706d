package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/calsync/internal/model"
)

// SyncState represents the current state of a connection's reconciliation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	}
	return fmt.Sprintf("SyncState(%d)", int(s))
}

// SyncStatus holds the sync state for a single connection.
type SyncStatus struct {
	ConnectionID string
	State        SyncState
	LastSync     time.Time
	LastResult   Result
	Error        error
}

// runTimeout is the maximum time allowed for one connection's run.
const runTimeout = 5 * time.Minute

// Runner reconciles configured connections on a cron schedule.
type Runner struct {
	engine      *Engine
	logger      *slog.Logger
	connections []model.ConnectionConfig
	statuses    map[string]*SyncStatus
	cron        *cron.Cron
	mu          gosync.Mutex
	running     bool
}

// NewRunner creates a Runner for the enabled connections in conns.
func NewRunner(engine *Engine, conns []model.ConnectionConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		engine:   engine,
		logger:   logger,
		statuses: make(map[string]*SyncStatus),
	}
	for _, c := range conns {
		if !c.Enabled {
			continue
		}
		r.connections = append(r.connections, c)
		r.statuses[c.ID] = &SyncStatus{ConnectionID: c.ID, State: SyncIdle}
	}
	return r
}

// Start schedules RunAll according to the cron expression spec.
func (r *Runner) Start(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.RunAll(context.Background()) }); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	c.Start()

	r.cron = c
	r.running = true
	r.logger.Info("runner started",
		slog.String("schedule", spec),
		slog.Int("connections", len(r.connections)),
	)
	return nil
}

// Stop halts the schedule and waits for a run in progress to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	c := r.cron
	r.running = false
	r.mu.Unlock()

	<-c.Stop().Done()
}

// RunAll reconciles every configured connection once, sequentially.
func (r *Runner) RunAll(ctx context.Context) {
	for _, c := range r.connections {
		if ctx.Err() != nil {
			return
		}
		r.runConnection(ctx, c)
	}
}

// GetStatuses returns the current sync status of all configured connections.
func (r *Runner) GetStatuses() []SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(r.connections))
	for _, c := range r.connections {
		statuses = append(statuses, *r.statuses[c.ID])
	}
	return statuses
}

// runConnection performs one reconciliation and records its outcome.
func (r *Runner) runConnection(ctx context.Context, c model.ConnectionConfig) {
	provider, err := model.ParseProvider(c.Provider)
	if err != nil {
		r.setStatus(c.ID, SyncError, Result{}, err)
		r.logger.Error("skipping connection", slog.String("connection_id", c.ID), slog.Any("error", err))
		return
	}

	r.setStatus(c.ID, SyncRunning, Result{}, nil)

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := r.engine.Reconcile(ctx, Request{
		ConnectionID: c.ID,
		UserID:       c.UserID,
		Provider:     provider,
		CalendarIDs:  c.CalendarIDs,
	})
	switch {
	case errors.Is(err, ErrSyncInProgress):
		r.logger.Info("connection busy, skipping tick", slog.String("connection_id", c.ID))
		r.mu.Lock()
		if status, ok := r.statuses[c.ID]; ok {
			status.State = SyncIdle
		}
		r.mu.Unlock()
	case err != nil:
		r.logger.Error("reconcile failed", slog.String("connection_id", c.ID), slog.Any("error", err))
		r.setStatus(c.ID, SyncError, res, err)
	default:
		r.setStatus(c.ID, SyncIdle, res, nil)
	}
}

// setStatus updates the sync status for a connection.
func (r *Runner) setStatus(id string, state SyncState, res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[id]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state != SyncRunning {
		status.LastResult = res
	}
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}
