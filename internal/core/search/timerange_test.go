package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTimeRange(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timeRange string
		start     string
		end       string
	}{
		{"last 15m", "last_15m", "2025-03-12 10:15:00.000", "2025-03-12 10:30:00.000"},
		{"last 24h", "last_24h", "2025-03-11 10:30:00.000", "2025-03-12 10:30:00.000"},
		{"today", "today", "2025-03-12 00:00:00.000", "2025-03-12 23:59:59.999"},
		{"yesterday", "yesterday", "2025-03-11 00:00:00.000", "2025-03-11 23:59:59.999"},
		{"last week", "last_week", "2025-03-02 00:00:00.000", "2025-03-08 23:59:59.999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTimeRange(Params{TimeRange: tt.timeRange}, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, got.StartTime)
			assert.Equal(t, tt.end, got.EndTime)
		})
	}

	t.Run("unknown preset", func(t *testing.T) {
		_, err := ResolveTimeRange(Params{TimeRange: "last_century"}, now)
		assert.Error(t, err)
	})

	t.Run("absolute range is untouched", func(t *testing.T) {
		p := Params{StartTime: "a", EndTime: "b"}
		got, err := ResolveTimeRange(p, now)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})
}

func TestNextTimeRange(t *testing.T) {
	assert.Equal(t, "last_30m", NextTimeRange("last_15m"))
	assert.Equal(t, "last_5m", NextTimeRange("last_week"))
	assert.Equal(t, DefaultTimeRange, NextTimeRange("bogus"))
	assert.True(t, ValidTimeRange("today"))
	assert.Equal(t, "Today", TimeRangeLabel("today"))
}
