// Package schedule turns an event's wall-clock span into per-day schedule
// descriptors. Schedule rows are keyed by civil date, so no descriptor may
// claim more than one date.
package schedule

import (
	"time"

	"github.com/nhle/calsync/internal/timezone"
)

// MinDurationMinutes is the floor applied to every computed duration.
const MinDurationMinutes = 5

// Boundary times used for the two halves of a cross-midnight split.
const (
	StartOfDay = "00:00"
	EndOfDay   = "24:00"
)

// Descriptor is one schedule row to be written for a task.
type Descriptor struct {
	Date      string
	StartTime string

	// EndTime is nil when the segment is open ended.
	EndTime         *string
	DurationMinutes int
}

// Duration returns the whole-minute length of [start, end), capped at
// maxMinutes (when positive) and floored at MinDurationMinutes.
// Non-monotonic spans yield the floor.
func Duration(start, end time.Time, maxMinutes int) int {
	minutes := int(end.Sub(start).Round(time.Minute) / time.Minute)
	if maxMinutes > 0 && minutes > maxMinutes {
		minutes = maxMinutes
	}
	return floor(minutes)
}

// Split lays an event running from start to end (wall-clock readings in the
// same zone) across schedule descriptors. totalMinutes is the event's
// already-capped duration.
//
//   - same date, end not before start: one descriptor with both times
//   - end on the next date: [start, 24:00) and [00:00, end), durations
//     summing to totalMinutes with the remainder on the first segment
//   - end two or more dates later: one open-ended descriptor on the start date
//   - end before start: one open-ended descriptor with the floor duration
//
// Ordering is decided on the instants, so a same-day span across a DST
// fall-back whose end reads earlier on the clock is still one descriptor.
func Split(start, end timezone.WallClock, totalMinutes int) []Descriptor {
	days := start.DaysUntil(end)

	switch {
	case days == 0 && !end.Instant.Before(start.Instant):
		return []Descriptor{{
			Date:            start.Date,
			StartTime:       start.Time,
			EndTime:         ptr(end.Time),
			DurationMinutes: floor(totalMinutes),
		}}

	case days == 1 && end.Minutes == 0:
		// Ends exactly at midnight; nothing lands on the second date.
		return []Descriptor{{
			Date:            start.Date,
			StartTime:       start.Time,
			EndTime:         ptr(EndOfDay),
			DurationMinutes: floor(totalMinutes),
		}}

	case days == 1:
		second := min(end.Minutes, totalMinutes)
		first, second := balance(totalMinutes-second, second)
		return []Descriptor{
			{
				Date:            start.Date,
				StartTime:       start.Time,
				EndTime:         ptr(EndOfDay),
				DurationMinutes: first,
			},
			{
				Date:            end.Date,
				StartTime:       StartOfDay,
				EndTime:         ptr(end.Time),
				DurationMinutes: second,
			},
		}

	case days > 1:
		return []Descriptor{{
			Date:            start.Date,
			StartTime:       start.Time,
			DurationMinutes: floor(totalMinutes),
		}}

	default:
		return []Descriptor{{
			Date:            start.Date,
			StartTime:       start.Time,
			DurationMinutes: MinDurationMinutes,
		}}
	}
}

// balance floors both halves of a split, taking the minutes a short half
// gains from the other half so the sum is unchanged. Totals below twice the
// floor cannot keep their sum and yield the floor for both.
func balance(first, second int) (int, int) {
	if first < MinDurationMinutes {
		second -= MinDurationMinutes - first
		first = MinDurationMinutes
	}
	if second < MinDurationMinutes {
		first -= MinDurationMinutes - second
		second = MinDurationMinutes
	}
	return floor(first), second
}

func floor(minutes int) int {
	if minutes < MinDurationMinutes {
		return MinDurationMinutes
	}
	return minutes
}

func ptr(s string) *string { return &s }
