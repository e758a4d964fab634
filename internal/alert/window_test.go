package alert_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finnhub-stock-bot/internal/alert"
)

func TestWindow_ZeroValueAllowsEverything(t *testing.T) {
	var w alert.Window
	assert.True(t, w.Allows(time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), 0))
}

func TestWindow_Session(t *testing.T) {
	w, err := alert.ParseWindow("09:30", "16:00", "UTC", time.Hour)
	require.NoError(t, err)

	day := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }
	fresh := func(now time.Time) int64 { return now.Add(-10 * time.Minute).Unix() }

	tests := []struct {
		name string
		now  time.Time
		ts   int64
		want bool
	}{
		{"before open", day(9, 29), fresh(day(9, 29)), false},
		{"at open", day(9, 30), fresh(day(9, 30)), true},
		{"midday", day(12, 0), fresh(day(12, 0)), true},
		{"at close", day(16, 0), fresh(day(16, 0)), true},
		{"after close", day(16, 1), fresh(day(16, 1)), false},
		{"stale quote", day(12, 0), day(10, 59).Unix(), false},
		{"quote from the future", day(12, 0), day(12, 5).Unix(), false},
		{"missing timestamp", day(12, 0), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Allows(tt.now, tt.ts))
		})
	}
}

func TestWindow_NoMaxAgeIgnoresTimestamp(t *testing.T) {
	w, err := alert.ParseWindow("09:30", "16:00", "UTC", 0)
	require.NoError(t, err)
	assert.True(t, w.Allows(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC), 0))
}

func TestWindow_UsesConfiguredZone(t *testing.T) {
	w, err := alert.ParseWindow("09:30", "16:00", "America/New_York", 0)
	require.NoError(t, err)

	// 14:00 UTC is 09:00 in New York during standard time.
	assert.False(t, w.Allows(time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC), 0))
	assert.True(t, w.Allows(time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC), 0))
}

func TestParseWindow_Errors(t *testing.T) {
	_, err := alert.ParseWindow("9h", "16:00", "", 0)
	assert.Error(t, err)

	_, err = alert.ParseWindow("16:00", "09:30", "", 0)
	assert.Error(t, err)

	_, err = alert.ParseWindow("09:30", "16:00", "Mars/Olympus", 0)
	assert.Error(t, err)
}
