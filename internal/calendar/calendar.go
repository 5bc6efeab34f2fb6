// Package calendar holds the local-time date rules used by the ledger and
// the aggregation layer. Date-only strings are always read as local midnight.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical date-only layout.
const DateFormat = "2006-01-02"

const Day = 24 * time.Hour

const (
	readDateFormat     = "2006-1-2"                  // permissive: 2026-3-7
	readDateTimeFormat = readDateFormat + "T15:04:05" // date-only input with midnight appended
	localDateTime      = "2006-01-02T15:04:05"
)

// ParseLocal parses s in loc. A date-only value gets "T00:00:00" appended
// before parsing, so "2026-03-07" is local midnight, never UTC midnight.
// Full RFC 3339 timestamps keep their own offset.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if IsDateOnly(s) {
		t, err := time.ParseInLocation(readDateTimeFormat, s+"T00:00:00", loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localDateTime, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// IsDateOnly reports whether s carries a calendar date without a time of
// day, the form ParseLocal reads as local midnight.
func IsDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.Contains(s, "T") && !strings.Contains(s, " ")
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of the local day containing t.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return AddDays(StartOfDay(t, loc), 1).Add(-time.Nanosecond)
}

// AddDays moves t by n calendar days, keeping the wall clock across DST.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysBetween counts calendar days from a to b in loc (negative if b is earlier).
func DaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	// UTC midnights avoid the 23h/25h days around DST switches.
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / Day)
}

// DayKey formats the local day of t as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateFormat)
}

// InMonth reports whether t falls in the given local calendar month.
func InMonth(t time.Time, year int, month time.Month, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	y, m, _ := t.In(loc).Date()
	return y == year && m == month
}
