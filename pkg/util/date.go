package util

import (
    "strconv"
    "time"
)

// DateLayout is the calendar-day layout used by FRED and the CSV tables.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar day ("2006-01-02") or an RFC3339 timestamp and
// truncates it to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(DateLayout, s); err == nil {
        return t.UTC(), true
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return Day(t), true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return Day(time.Unix(ts, 0)), true
    }
    return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
    if t, ok := ParseDate(s); ok {
        return t
    }
    return def
}

// FormatDate renders t as "2006-01-02".
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
    return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AbsDays is |DaysBetween(a, b)|.
func AbsDays(a, b time.Time) int {
    d := DaysBetween(a, b)
    if d < 0 {
        return -d
    }
    return d
}
