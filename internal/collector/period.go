package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// periodStart resolves a lookback period such as "1y", "6mo" or "90d" relative to now.
func periodStart(now time.Time, period string) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	var unit string
	switch {
	case strings.HasSuffix(p, "mo"):
		unit = "mo"
	case strings.HasSuffix(p, "y"):
		unit = "y"
	case strings.HasSuffix(p, "d"):
		unit = "d"
	default:
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}
	switch unit {
	case "y":
		return now.AddDate(-n, 0, 0), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(0, 0, -n), nil
	}
}

// calendarDate truncates t to midnight UTC of its calendar date.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
