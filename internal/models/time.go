package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/sparkify/internal/shared"
)

// Accepted layouts for textual timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

var (
	minTimestamp = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// Decompose derives the calendar attributes of ts.
//
// Week is the ISO-8601 week number and Weekday counts from Monday (0) to Sunday (6).
// Year is the calendar year, which can differ from the ISO week-year around New Year.
func Decompose(ts time.Time) TimeEntry {
	_, week := ts.ISOWeek()
	return TimeEntry{
		StartTime: ts,
		Hour:      ts.Hour(),
		Day:       ts.Day(),
		Week:      week,
		Month:     int(ts.Month()),
		Year:      ts.Year(),
		Weekday:   (int(ts.Weekday()) + 6) % 7,
	}
}

// FromMillis converts a millisecond Unix epoch into a UTC timestamp.
func FromMillis(ms int64) (time.Time, error) {
	if ms < 0 {
		return time.Time{}, fmt.Errorf("%w: negative epoch %d", shared.ErrInvalidTimestamp, ms)
	}

	ts := time.UnixMilli(ms).UTC()
	if ts.After(maxTimestamp) {
		return time.Time{}, fmt.Errorf("%w: epoch %d out of range", shared.ErrInvalidTimestamp, ms)
	}
	return ts, nil
}

// DecomposeMillis converts a millisecond Unix epoch and decomposes it.
func DecomposeMillis(ms int64) (TimeEntry, error) {
	ts, err := FromMillis(ms)
	if err != nil {
		return TimeEntry{}, err
	}
	return Decompose(ts), nil
}

// ParseTimestamp reads a textual timestamp. Values without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", shared.ErrInvalidTimestamp)
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			if ts.Before(minTimestamp) {
				break
			}
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q", shared.ErrInvalidTimestamp, s)
}
