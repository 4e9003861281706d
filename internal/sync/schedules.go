package sync

import (
	"cmp"
	"slices"

	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/schedule"
)

// schedulePlan is the set of writes that turns a task's existing schedules
// into the desired layout.
type schedulePlan struct {
	// keep holds every surviving existing row with its new values,
	// whether or not it changed.
	keep []model.TaskSchedule

	// update is the subset of keep whose values changed.
	update []model.TaskSchedule

	create []schedule.Descriptor
	remove []model.TaskSchedule
}

func (p schedulePlan) empty() bool {
	return len(p.update) == 0 && len(p.create) == 0 && len(p.remove) == 0
}

// planSchedules matches desired descriptors to existing rows so that row ids
// survive: a row already on the descriptor's date is reused first, then any
// leftover row is moved to the new date, and only then are rows inserted.
// Rows left unmatched are removed.
func planSchedules(existing []model.TaskSchedule, desired []schedule.Descriptor) schedulePlan {
	rows := slices.Clone(existing)
	sortSchedules(rows)

	used := make([]bool, len(rows))
	match := make([]int, len(desired))
	for i := range match {
		match[i] = -1
	}

	// Same date.
	for i, d := range desired {
		for j, r := range rows {
			if !used[j] && r.Date == d.Date {
				match[i] = j
				used[j] = true
				break
			}
		}
	}

	// Moved.
	for i := range desired {
		if match[i] >= 0 {
			continue
		}
		for j := range rows {
			if !used[j] {
				match[i] = j
				used[j] = true
				break
			}
		}
	}

	var plan schedulePlan
	for i, d := range desired {
		j := match[i]
		if j < 0 {
			plan.create = append(plan.create, d)
			continue
		}

		row := rows[j]
		next := row
		next.Date = d.Date
		next.StartTime = d.StartTime
		next.EndTime = d.EndTime
		next.DurationMinutes = d.DurationMinutes

		plan.keep = append(plan.keep, next)
		if !sameSlot(row, next) {
			plan.update = append(plan.update, next)
		}
	}

	for j, r := range rows {
		if !used[j] {
			plan.remove = append(plan.remove, r)
		}
	}
	return plan
}

// sameSlot reports whether two schedule rows occupy the same date and times.
func sameSlot(a, b model.TaskSchedule) bool {
	return a.Date == b.Date &&
		a.StartTime == b.StartTime &&
		a.DurationMinutes == b.DurationMinutes &&
		equalPtr(a.EndTime, b.EndTime)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortSchedules(s []model.TaskSchedule) {
	slices.SortStableFunc(s, func(a, b model.TaskSchedule) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
