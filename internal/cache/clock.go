package cache

import (
	"fmt"
	"strings"
	"time"

	"CandleFeed/internal/model"
)

// ZonePolicy selects how "now" is expressed before it is compared with
// stored bar times during eviction.
type ZonePolicy int

const (
	// ZoneAware compares absolute instants. Now is expressed in the
	// location of the stored history.
	ZoneAware ZonePolicy = iota
	// ZoneNaive treats stored bar times as wall-clock readings tagged UTC.
	// Now is read as a wall clock in Clock.Local and tagged UTC the same way.
	// Sources must tag their wall times as UTC too, and Clock.Local should
	// be the zone those wall times were read in.
	ZoneNaive
)

func (p ZonePolicy) String() string {
	switch p {
	case ZoneAware:
		return "aware"
	case ZoneNaive:
		return "naive"
	default:
		return fmt.Sprintf("ZonePolicy(%d)", int(p))
	}
}

// ParseZonePolicy parses "aware" or "naive". The empty string means aware.
func ParseZonePolicy(s string) (ZonePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aware":
		return ZoneAware, nil
	case "naive":
		return ZoneNaive, nil
	default:
		return ZoneAware, fmt.Errorf("unknown zone policy %q", s)
	}
}

// Clock is the single time policy shared by a cache.
type Clock struct {
	Now   func() time.Time
	Zone  ZonePolicy
	Local *time.Location
}

// SystemClock returns a zone-aware clock backed by time.Now.
func SystemClock() Clock {
	return Clock{Now: time.Now, Zone: ZoneAware, Local: time.Local}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Cutoff returns the oldest bar time still retained for history.
func (c Clock) Cutoff(history []model.Candle, retention time.Duration) time.Time {
	now := c.now()
	if c.Zone == ZoneNaive {
		loc := c.Local
		if loc == nil {
			loc = time.Local
		}
		w := now.In(loc)
		wall := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC)
		return wall.Add(-retention)
	}
	if len(history) > 0 {
		now = now.In(history[0].Time.Location())
	}
	return now.Add(-retention)
}
