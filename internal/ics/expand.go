package ics

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences caps how many instances one recurring event may produce.
const maxOccurrences = 1000

// instanceLayout formats an occurrence start into its external id suffix.
const instanceLayout = "20060102T150405Z"

// occurrence is one concrete instance of a parsed event.
type occurrence struct {
	externalID string
	event      vevent
	start      time.Time
	end        time.Time
}

// expandResult holds the occurrences plus the UIDs that hit maxOccurrences.
type expandResult struct {
	occurrences []occurrence
	truncated   []string
	invalid     []string
}

// instanceID names the occurrence of uid starting at start. Overrides use the
// same id so they replace the generated instance.
func instanceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(instanceLayout)
}

// expand turns parsed events into occurrences. Single events pass through
// with their UID as id. Recurring events are expanded within [from, until)
// and RECURRENCE-ID overrides replace the instance they name.
func expand(events []vevent, from, until time.Time) expandResult {
	var res expandResult

	overrides := make(map[string]vevent)
	for _, ev := range events {
		if ev.recurrenceID != nil {
			overrides[instanceID(ev.uid, *ev.recurrenceID)] = ev
		}
	}

	for _, ev := range events {
		if ev.recurrenceID != nil {
			continue
		}
		if ev.rrule == "" && len(ev.rdates) == 0 {
			res.occurrences = append(res.occurrences, occurrence{
				externalID: ev.uid,
				event:      ev,
				start:      ev.start,
				end:        ev.end,
			})
			continue
		}

		starts, truncated, err := recurrences(ev, from, until)
		if err != nil {
			res.invalid = append(res.invalid, fmt.Sprintf("event %s: %v", ev.uid, err))
			continue
		}
		if truncated {
			res.truncated = append(res.truncated, ev.uid)
		}

		length := ev.end.Sub(ev.start)
		for _, start := range starts {
			id := instanceID(ev.uid, start)
			occ := occurrence{externalID: id, event: ev, start: start, end: start.Add(length)}
			if o, ok := overrides[id]; ok {
				occ.event = o
				occ.start = o.start
				occ.end = o.end
			}
			res.occurrences = append(res.occurrences, occ)
		}
	}

	slices.SortStableFunc(res.occurrences, func(a, b occurrence) int {
		return a.start.Compare(b.start)
	})
	return res
}

// recurrences lists the instance starts of ev that fall in [from, until).
func recurrences(ev vevent, from, until time.Time) ([]time.Time, bool, error) {
	var set rrule.Set
	if ev.rrule != "" {
		r, err := rrule.StrToRRule(ev.rrule)
		if err != nil {
			return nil, false, fmt.Errorf("parsing RRULE %q: %w", ev.rrule, err)
		}
		r.DTStart(ev.start)
		set.RRule(r)
	} else {
		set.RDate(ev.start)
	}
	for _, t := range ev.rdates {
		set.RDate(t.In(ev.start.Location()))
	}
	for _, t := range ev.exdates {
		set.ExDate(t.In(ev.start.Location()))
	}

	loc := ev.start.Location()
	starts := set.Between(from.In(loc), until.In(loc), true)
	starts = slices.DeleteFunc(starts, func(t time.Time) bool { return !t.Before(until) })

	if len(starts) > maxOccurrences {
		return starts[:maxOccurrences], true, nil
	}
	return starts, false, nil
}
