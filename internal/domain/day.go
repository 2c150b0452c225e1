package domain

import "time"

// DayKeyFormat is the canonical calendar-day key. It is fixed-width and
// zero-padded, so lexical comparison of keys matches chronological order.
const DayKeyFormat = "2006-01-02"

// DayKey returns the canonical day key for a moment in time.
func DayKey(t time.Time) string {
	return t.Format(DayKeyFormat)
}

// ParseDayKey parses a canonical day key back into a time at midnight UTC.
func ParseDayKey(key string) (time.Time, error) {
	return time.Parse(DayKeyFormat, key)
}
