package parse

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used by the monitoring API.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	TimestampLayout,
	DateLayout,
}

// FormatDate renders t for date-only query parameters.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimestamp renders t for timestamp query parameters.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Timestamp parses an API timestamp in the primary "2006-01-02 15:04:05" layout,
// falling back to ISO 8601. Values without a zone are read as UTC.
func Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return ISO(s)
}

// WallClock returns the wall-clock reading of t in loc, labelled UTC. Upstream timestamps
// carry no zone and are site-local, and Timestamp reads them the same way.
func WallClock(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// ISO parses an ISO 8601 timestamp, accepting a trailing "Z" and missing zone.
func ISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", s)
}

// Date parses the leading "2006-01-02" of s, so full timestamps are accepted too.
func Date(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return time.Time{}, fmt.Errorf("failed to parse date %q", s)
	}
	t, err := time.ParseInLocation(DateLayout, s[:len(DateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return t, nil
}

// OptionalISO returns nil for empty or unparsable input.
func OptionalISO(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ISO(s)
	if err != nil {
		return nil
	}
	return &t
}

// OptionalDate returns nil for empty or unparsable input.
func OptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := Date(s)
	if err != nil {
		return nil
	}
	return &t
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
