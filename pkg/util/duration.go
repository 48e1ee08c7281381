package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// ParseDuration parses a duration string. Besides the units understood by time.ParseDuration,
// it accepts a single integer followed by "d" (days) or "w" (weeks), e.g. "825d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'd':
		unit = Day
	case 'w':
		unit = Week
	default:
		return time.ParseDuration(s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return time.Duration(n) * unit, nil
}

// FmtDuration formats d so that ParseDuration(FmtDuration(d)) == d. Whole days are written
// with the "d" unit.
func FmtDuration(d time.Duration) string {
	if d > 0 && d%Day == 0 {
		return strconv.FormatInt(int64(d/Day), 10) + "d"
	}
	return d.String()
}
