package util

import (
	"fmt"
	"time"
)

// archiveDateLayout is the date format used by daily kline archive files.
const archiveDateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string as a UTC midnight instant.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(archiveDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t's UTC calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(archiveDateLayout)
}

// DateRange enumerates the YYYY-MM-DD dates from start through end
// inclusive. Daily archive files are keyed by these strings. Returns nil
// when end precedes start.
func DateRange(start, end time.Time) []string {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(archiveDateLayout))
	}
	return dates
}
