// Package timezone converts absolute instants into wall-clock dates and
// times for a named zone. Unknown zones never fail; they fall back to UTC
// so one malformed event cannot block the rest of a sync run.
package timezone

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Date and time-of-day layouts used for schedule storage.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Fallback is the zone used when an identifier cannot be resolved.
var Fallback = time.UTC

// windowsToIANA maps Windows zone names, as sent by Outlook/Exchange, to
// IANA names.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":          "America/Los_Angeles",
	"Mountain Standard Time":         "America/Denver",
	"Central Standard Time":          "America/Chicago",
	"Eastern Standard Time":          "America/New_York",
	"Atlantic Standard Time":         "America/Halifax",
	"Alaskan Standard Time":          "America/Anchorage",
	"Hawaiian Standard Time":         "Pacific/Honolulu",
	"GMT Standard Time":              "Europe/London",
	"W. Europe Standard Time":        "Europe/Berlin",
	"Romance Standard Time":          "Europe/Paris",
	"Central Europe Standard Time":   "Europe/Budapest",
	"E. Europe Standard Time":        "Europe/Chisinau",
	"FLE Standard Time":              "Europe/Kiev",
	"Russian Standard Time":          "Europe/Moscow",
	"China Standard Time":            "Asia/Shanghai",
	"Tokyo Standard Time":            "Asia/Tokyo",
	"Korea Standard Time":            "Asia/Seoul",
	"India Standard Time":            "Asia/Kolkata",
	"Singapore Standard Time":        "Asia/Singapore",
	"AUS Eastern Standard Time":      "Australia/Sydney",
	"New Zealand Standard Time":      "Pacific/Auckland",
	"E. South America Standard Time": "America/Sao_Paulo",
	"UTC":                            "UTC",
}

// cache holds resolved locations only, so its size is bounded by the zone
// database and the Windows table.
var (
	cacheMu sync.RWMutex
	cache   = map[string]*time.Location{}
)

// Resolve returns the location for zoneID and whether it was recognised.
// Empty, invalid, or unknown identifiers resolve to Fallback with ok=false.
func Resolve(zoneID string) (loc *time.Location, ok bool) {
	id := strings.TrimSpace(zoneID)
	switch strings.ToUpper(id) {
	case "":
		return Fallback, false
	case "UTC", "Z", "GMT", "ETC/UTC":
		return time.UTC, true
	}

	cacheMu.RLock()
	loc, hit := cache[id]
	cacheMu.RUnlock()
	if hit {
		return loc, true
	}

	name := id
	if iana, mapped := windowsToIANA[id]; mapped {
		name = iana
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Misses are not cached.
		return Fallback, false
	}

	cacheMu.Lock()
	cache[id] = loc
	cacheMu.Unlock()
	return loc, true
}

// Location is Resolve without the recognition flag.
func Location(zoneID string) *time.Location {
	loc, _ := Resolve(zoneID)
	return loc
}

// FormatTimeOfDay returns the 24-hour "HH:MM" wall-clock time of instant
// in zoneID.
func FormatTimeOfDay(instant time.Time, zoneID string) string {
	return instant.In(Location(zoneID)).Format(TimeLayout)
}

// FormatCalendarDate returns the "YYYY-MM-DD" civil date of instant in
// zoneID.
func FormatCalendarDate(instant time.Time, zoneID string) string {
	return instant.In(Location(zoneID)).Format(DateLayout)
}

// WallClock is an instant seen on a wall clock in a particular zone.
type WallClock struct {
	// Date is the civil date, YYYY-MM-DD.
	Date string
	// Time is the time of day, HH:MM.
	Time string
	// Minutes is the number of minutes past local midnight.
	Minutes int
	// Instant is the absolute time the reading was taken from.
	Instant time.Time

	year  int
	month time.Month
	day   int
}

// Wall converts instant into its wall-clock reading in loc.
func Wall(instant time.Time, loc *time.Location) WallClock {
	local := instant.In(loc)
	y, m, d := local.Date()
	return WallClock{
		Date:    local.Format(DateLayout),
		Time:    local.Format(TimeLayout),
		Minutes: local.Hour()*60 + local.Minute(),
		Instant: instant,
		year:    y,
		month:   m,
		day:     d,
	}
}

// DaysUntil returns the number of civil days from w to other. It is
// negative when other is an earlier date.
func (w WallClock) DaysUntil(other WallClock) int {
	a := time.Date(w.year, w.month, w.day, 0, 0, 0, 0, time.UTC)
	b := time.Date(other.year, other.month, other.day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
