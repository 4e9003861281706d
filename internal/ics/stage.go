package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/store"
	"github.com/nhle/calsync/internal/timezone"
)

// DefaultHorizon is how far ahead recurring events are expanded.
const DefaultHorizon = 30 * 24 * time.Hour

// Options controls how a calendar file is staged.
type Options struct {
	ConnectionID string
	CalendarID   string

	// DefaultTimeZone interprets floating times. Empty means UTC.
	DefaultTimeZone string

	// From and Horizon bound recurrence expansion. A zero From means now.
	From    time.Time
	Horizon time.Duration
}

func (o Options) window(now time.Time) (time.Time, time.Time) {
	from := o.From
	if from.IsZero() {
		from = now
	}
	horizon := o.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return from, from.Add(horizon)
}

// StageResult counts what one staging run wrote.
type StageResult struct {
	Staged    int
	Cancelled int
	Skipped   []string
	Truncated []string
}

// Stager writes events read from iCalendar data into the staging table.
type Stager struct {
	store  store.Queries
	logger *slog.Logger
	now    func() time.Time
}

// NewStager creates a Stager writing to q.
func NewStager(q store.Queries, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{store: q, logger: logger, now: time.Now}
}

// StageFile stages every event in the .ics file at path.
func (s *Stager) StageFile(ctx context.Context, path string, opts Options) (StageResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return StageResult{}, fmt.Errorf("opening calendar file: %w", err)
	}
	defer f.Close()

	return s.Stage(ctx, f, opts)
}

// Stage reads iCalendar data from r and upserts one staged event per
// occurrence. Cancelled events are staged with the deleted flag so the next
// reconcile removes what was derived from them.
func (s *Stager) Stage(ctx context.Context, r io.Reader, opts Options) (StageResult, error) {
	var res StageResult

	if strings.TrimSpace(opts.ConnectionID) == "" {
		return res, errors.New("missing connection id")
	}
	if _, err := s.store.GetConnection(ctx, opts.ConnectionID); err != nil {
		return res, fmt.Errorf("looking up connection %s: %w", opts.ConnectionID, err)
	}

	loc, ok := timezone.Resolve(opts.DefaultTimeZone)
	if !ok && opts.DefaultTimeZone != "" {
		s.logger.Warn("unknown default time zone, using UTC", slog.String("time_zone", opts.DefaultTimeZone))
	}

	events, skipped, err := decode(r, loc)
	if err != nil {
		return res, err
	}
	res.Skipped = skipped

	from, until := opts.window(s.now())
	expanded := expand(events, from, until)
	res.Skipped = append(res.Skipped, expanded.invalid...)
	res.Truncated = expanded.truncated

	for _, uid := range expanded.truncated {
		s.logger.Warn("recurring event truncated",
			slog.String("uid", uid),
			slog.Int("cap", maxOccurrences),
		)
	}

	for _, occ := range expanded.occurrences {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ev := stagedEvent(opts, occ)
		if err := s.store.UpsertStagedEvent(ctx, ev); err != nil {
			return res, fmt.Errorf("staging event %s: %w", ev.ExternalID, err)
		}
		if ev.Deleted {
			res.Cancelled++
			continue
		}
		res.Staged++
	}

	for _, msg := range res.Skipped {
		s.logger.Warn("skipped calendar entry", slog.String("reason", msg))
	}
	s.logger.Info("calendar staged",
		slog.String("connection_id", opts.ConnectionID),
		slog.String("calendar_id", opts.CalendarID),
		slog.Int("staged", res.Staged),
		slog.Int("cancelled", res.Cancelled),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func stagedEvent(opts Options, occ occurrence) model.StagedEvent {
	calendarID := opts.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	zone := occ.event.timeZone
	if zone == "" {
		zone = opts.DefaultTimeZone
	}
	return model.StagedEvent{
		ConnectionID: opts.ConnectionID,
		CalendarID:   calendarID,
		ExternalID:   occ.externalID,
		StartAt:      occ.start,
		EndAt:        occ.end,
		TimeZone:     zone,
		Summary:      occ.event.summary,
		Description:  occ.event.description,
		Busy:         occ.event.busy,
		Synthetic:    occ.event.synthetic,
		Deleted:      occ.event.cancelled,
	}
}
