package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodDays converts a lookback label ("2d", "1wk", "6mo", "1y") into an
// approximate number of calendar days.
func PeriodDays(label string) (int, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	units := []struct {
		suffix string
		days   int
	}{
		{"mo", 30},
		{"wk", 7},
		{"d", 1},
		{"y", 365},
	}
	for _, u := range units {
		if !strings.HasSuffix(label, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(label, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid period %q", label)
		}
		return n * u.days, nil
	}
	return 0, fmt.Errorf("invalid period %q", label)
}

// IntervalDuration converts a bar size label ("1m", "1h", "1d", "1wk") into
// its duration.
func IntervalDuration(label string) (time.Duration, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"mo", 30 * 24 * time.Hour},
		{"wk", 7 * 24 * time.Hour},
		{"m", time.Minute},
		{"h", time.Hour},
		{"d", 24 * time.Hour},
	}
	for _, u := range units {
		if !strings.HasSuffix(label, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(label, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid interval %q", label)
		}
		return time.Duration(n) * u.unit, nil
	}
	return 0, fmt.Errorf("invalid interval %q", label)
}

// isDailyOrLonger reports whether bars of this interval are keyed by date.
func isDailyOrLonger(interval string) bool {
	d, err := IntervalDuration(interval)
	return err == nil && d >= 24*time.Hour
}
