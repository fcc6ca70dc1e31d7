package search

import (
	"fmt"
	"time"
)

// TimeLayout is the wire layout of StartTime and EndTime.
const TimeLayout = "2006-01-02 15:04:05.000"

// DefaultTimeRange is the preset used when none is configured.
const DefaultTimeRange = "last_15m"

type timeRange struct {
	label string
	span  func(now time.Time) (time.Time, time.Time)
}

func lastN(d time.Duration) func(time.Time) (time.Time, time.Time) {
	return func(now time.Time) (time.Time, time.Time) { return now.Add(-d), now }
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// weeks start on Sunday
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

var timeRanges = map[string]timeRange{
	"last_5m":  {"Last 5 minutes", lastN(5 * time.Minute)},
	"last_15m": {"Last 15 minutes", lastN(15 * time.Minute)},
	"last_30m": {"Last 30 minutes", lastN(30 * time.Minute)},
	"last_1h":  {"Last hour", lastN(time.Hour)},
	"last_8h":  {"Last 8 hours", lastN(8 * time.Hour)},
	"last_24h": {"Last 24 hours", lastN(24 * time.Hour)},
	"today": {"Today", func(now time.Time) (time.Time, time.Time) {
		return startOfDay(now), endOfDay(now)
	}},
	"yesterday": {"Yesterday", func(now time.Time) (time.Time, time.Time) {
		y := now.AddDate(0, 0, -1)
		return startOfDay(y), endOfDay(y)
	}},
	"last_week": {"Last week", func(now time.Time) (time.Time, time.Time) {
		start := startOfWeek(now).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7).Add(-time.Millisecond)
	}},
}

// TimeRanges lists the supported presets in cycling order.
var TimeRanges = []string{
	"last_5m", "last_15m", "last_30m", "last_1h", "last_8h",
	"last_24h", "today", "yesterday", "last_week",
}

// ValidTimeRange reports whether name is a known preset.
func ValidTimeRange(name string) bool {
	_, ok := timeRanges[name]
	return ok
}

// TimeRangeLabel returns the display label of a preset, or name when unknown.
func TimeRangeLabel(name string) string {
	if tr, ok := timeRanges[name]; ok {
		return tr.label
	}
	return name
}

// NextTimeRange returns the preset following name in TimeRanges.
func NextTimeRange(name string) string {
	for i, n := range TimeRanges {
		if n == name {
			return TimeRanges[(i+1)%len(TimeRanges)]
		}
	}
	return DefaultTimeRange
}

// ResolveTimeRange returns a copy of p whose StartTime and EndTime are derived
// from its TimeRange relative to now. Params without a TimeRange are returned
// as is.
func ResolveTimeRange(p Params, now time.Time) (Params, error) {
	if p.TimeRange == "" {
		return p, nil
	}
	tr, ok := timeRanges[p.TimeRange]
	if !ok {
		return p, fmt.Errorf("unknown time range %q", p.TimeRange)
	}
	start, end := tr.span(now)
	next := p.Clone()
	next.StartTime = start.Format(TimeLayout)
	next.EndTime = end.Format(TimeLayout)
	return next, nil
}
