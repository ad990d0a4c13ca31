package spec

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses the spec duration shorthand: "<n><unit>" where
// unit is s, m, or h ("30m", "1h", "10s").
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q: use '<number><unit>' with unit s, m, or h", s)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration %q: use '<number><unit>' with unit s, m, or h", s)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration unit %q: use s, m, or h", string(unit))
	}
}

// ResolveStartTime resolves the time_progression start_time: "now" (or
// empty) captures the wall clock once; anything else must be RFC 3339.
func ResolveStartTime(startTime string, now func() time.Time) (time.Time, error) {
	if startTime == "" || startTime == "now" || startTime == "NOW" || startTime == "Now" {
		return now(), nil
	}
	t, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_time %q: use RFC 3339 or \"now\"", startTime)
	}
	return t, nil
}
