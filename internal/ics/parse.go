// Package ics stages events from iCalendar files so they can be reconciled
// without a live provider.
package ics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/nhle/calsync/internal/timezone"
)

const (
	propTransparency = "TRANSP"
	propRecurrenceID = "RECURRENCE-ID"

	// propSynthetic marks events the app itself pushed to the calendar.
	propSynthetic = "X-CALSYNC-SYNTHETIC"
)

// vevent is a decoded VEVENT before recurrence expansion.
type vevent struct {
	uid         string
	summary     string
	description string

	start    time.Time
	end      time.Time
	allDay   bool
	timeZone string

	busy      bool
	cancelled bool
	synthetic bool

	rrule        string
	rdates       []time.Time
	exdates      []time.Time
	recurrenceID *time.Time
}

// decode reads every VEVENT from r. Events that cannot be read are reported
// in skipped and do not stop decoding.
func decode(r io.Reader, loc *time.Location) (events []vevent, skipped []string, err error) {
	br := bufio.NewReader(r)
	if err := checkFormat(br); err != nil {
		return nil, nil, err
	}

	dec := ical.NewDecoder(br)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decoding calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, err := parseEvent(comp, loc)
			if err != nil {
				skipped = append(skipped, err.Error())
				continue
			}
			events = append(events, ev)
		}
	}
	return events, skipped, nil
}

// checkFormat rejects bodies that are not iCalendar data, such as an HTML
// login page saved in place of the export.
func checkFormat(br *bufio.Reader) error {
	head, err := br.Peek(64)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading calendar: %w", err)
	}
	text := strings.TrimLeft(string(head), "\ufeff \t\r\n")
	if !strings.HasPrefix(strings.ToUpper(text), "BEGIN:VCALENDAR") {
		return errors.New("not an iCalendar document: expected BEGIN:VCALENDAR")
	}
	return nil
}

func parseEvent(comp *ical.Component, loc *time.Location) (vevent, error) {
	var ev vevent

	uid := comp.Props.Get(ical.PropUID)
	if uid == nil || strings.TrimSpace(uid.Value) == "" {
		return ev, errors.New("event without UID")
	}
	ev.uid = uid.Value

	ev.summary = text(comp, ical.PropSummary)
	ev.description = text(comp, ical.PropDescription)

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, fmt.Errorf("event %s: missing DTSTART", ev.uid)
	}
	start, zone, err := propTime(startProp, loc)
	if err != nil {
		return ev, fmt.Errorf("event %s: DTSTART: %w", ev.uid, err)
	}
	ev.start = start
	ev.timeZone = zone
	ev.allDay = isDate(startProp)

	ev.end, err = eventEnd(comp, start, ev.allDay, loc)
	if err != nil {
		return ev, fmt.Errorf("event %s: %w", ev.uid, err)
	}

	ev.busy = !strings.EqualFold(text(comp, propTransparency), "TRANSPARENT")
	ev.cancelled = strings.EqualFold(text(comp, ical.PropStatus), "CANCELLED")
	ev.synthetic = strings.EqualFold(text(comp, propSynthetic), "TRUE")

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.rrule = p.Value
	}
	ev.rdates = propTimes(comp, ical.PropRecurrenceDates, loc)
	ev.exdates = propTimes(comp, ical.PropExceptionDates, loc)

	if p := comp.Props.Get(propRecurrenceID); p != nil {
		rid, _, err := propTime(p, loc)
		if err != nil {
			return ev, fmt.Errorf("event %s: RECURRENCE-ID: %w", ev.uid, err)
		}
		ev.recurrenceID = &rid
	}

	return ev, nil
}

func eventEnd(comp *ical.Component, start time.Time, allDay bool, loc *time.Location) (time.Time, error) {
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		end, _, err := propTime(p, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return end, nil
	}
	if p := comp.Props.Get(ical.PropDuration); p != nil {
		d, err := p.Duration()
		if err != nil {
			return time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return start.Add(d), nil
	}
	if allDay {
		return start.AddDate(0, 0, 1), nil
	}
	return start, nil
}

// propTime reads a DATE or DATE-TIME property. The TZID parameter is resolved
// here so Windows zone names work; floating times use loc. The returned zone
// is the TZID as written, "UTC" for Z times, or empty for floating times.
func propTime(p *ical.Prop, loc *time.Location) (time.Time, string, error) {
	prop := *p
	prop.Params = make(ical.Params, len(p.Params))
	for k, v := range p.Params {
		prop.Params[k] = v
	}

	zone := prop.Params.Get(ical.ParamTimezoneID)
	if zone != "" {
		loc, _ = timezone.Resolve(zone)
		delete(prop.Params, ical.ParamTimezoneID)
	}

	t, err := prop.DateTime(loc)
	if err != nil {
		return time.Time{}, "", err
	}
	if zone == "" && strings.HasSuffix(prop.Value, "Z") {
		zone = "UTC"
	}
	return t, zone, nil
}

// propTimes reads every value of a multi-valued date property such as EXDATE.
// Unreadable values are dropped.
func propTimes(comp *ical.Component, name string, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range comp.Props.Values(name) {
		for _, v := range strings.Split(p.Value, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			single := p
			single.Value = v
			if t, _, err := propTime(&single, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func isDate(p *ical.Prop) bool {
	return p.ValueType() == ical.ValueDate || !strings.Contains(p.Value, "T")
}

func text(comp *ical.Component, name string) string {
	p := comp.Props.Get(name)
	if p == nil {
		return ""
	}
	s, err := p.Text()
	if err != nil {
		return p.Value
	}
	return s
}
