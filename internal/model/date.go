package model

import "time"

// DateLayout is the ISO calendar date format used on the wire and in SQL
// parameters.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayOf drops the clock part of t, keeping its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
