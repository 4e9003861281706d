package timezone

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeOfDay(t *testing.T) {
	instant := time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		zone string
		want string
	}{
		{name: "empty zone falls back to UTC", zone: "", want: "23:30"},
		{name: "explicit UTC", zone: "UTC", want: "23:30"},
		{name: "IANA zone", zone: "America/New_York", want: "18:30"},
		{name: "positive offset crosses midnight", zone: "Asia/Tokyo", want: "08:30"},
		{name: "Windows zone name", zone: "Pacific Standard Time", want: "15:30"},
		{name: "invalid zone falls back to UTC", zone: "Mars/Olympus_Mons", want: "23:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeOfDay(instant, tt.zone))
		})
	}
}

func TestFormatCalendarDate(t *testing.T) {
	instant := time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-01-01", FormatCalendarDate(instant, "UTC"))
	assert.Equal(t, "2025-01-02", FormatCalendarDate(instant, "Asia/Tokyo"))
	assert.Equal(t, "2025-01-01", FormatCalendarDate(instant, "not a zone"))
}

func TestResolve(t *testing.T) {
	loc, ok := Resolve("Europe/Berlin")
	require.True(t, ok)
	assert.Equal(t, "Europe/Berlin", loc.String())

	loc, ok = Resolve("Eastern Standard Time")
	require.True(t, ok)
	assert.Equal(t, "America/New_York", loc.String())

	for range 2 {
		loc, ok = Resolve("Bogus/Zone")
		assert.False(t, ok)
		assert.Equal(t, Fallback, loc)
	}

	loc, ok = Resolve("")
	assert.False(t, ok)
	assert.Equal(t, Fallback, loc)
}

func TestResolve_CachesOnlyKnownZones(t *testing.T) {
	for i := range 50 {
		_, ok := Resolve(fmt.Sprintf("Upstream/Garbage-%d", i))
		require.False(t, ok)
	}
	_, ok := Resolve("Asia/Tokyo")
	require.True(t, ok)

	cacheMu.RLock()
	defer cacheMu.RUnlock()
	assert.Contains(t, cache, "Asia/Tokyo")
	for id := range cache {
		assert.NotContains(t, id, "Upstream/Garbage")
	}
}

func TestWall(t *testing.T) {
	start := time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 4, 9, 5, 0, 0, time.UTC)

	ws := Wall(start, time.UTC)
	we := Wall(end, time.UTC)

	assert.Equal(t, "2025-01-01", ws.Date)
	assert.Equal(t, "23:30", ws.Time)
	assert.Equal(t, 23*60+30, ws.Minutes)
	assert.Equal(t, 3, ws.DaysUntil(we))
	assert.Equal(t, -3, we.DaysUntil(ws))
	assert.Equal(t, 0, ws.DaysUntil(ws))
}

func TestWall_DaysUntilAcrossDST(t *testing.T) {
	loc, ok := Resolve("America/New_York")
	require.True(t, ok)

	// 2025-03-09 is the spring-forward day in New York.
	before := Wall(time.Date(2025, time.March, 8, 12, 0, 0, 0, loc), loc)
	after := Wall(time.Date(2025, time.March, 10, 12, 0, 0, 0, loc), loc)

	assert.Equal(t, 2, before.DaysUntil(after))
}
