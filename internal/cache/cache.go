// Package cache keeps a rolling, deduplicated, time-bounded candle history
// per symbol and reports when a fresh batch may have closed a bar.
package cache

import (
	"slices"
	"sort"
	"sync"
	"time"

	"CandleFeed/internal/model"
)

// DefaultRetention is the maximum age of a retained bar (about six months).
const DefaultRetention = 180 * 24 * time.Hour

// Option configures a Rolling cache.
type Option func(*Rolling)

// WithRetention sets the retention window. Non-positive values are ignored.
func WithRetention(d time.Duration) Option {
	return func(r *Rolling) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithClock sets the time policy used for eviction.
func WithClock(c Clock) Option {
	return func(r *Rolling) { r.clock = c }
}

// Rolling stores an ascending candle history per symbol.
// Updates for different symbols may run concurrently.
type Rolling struct {
	mu        sync.RWMutex
	data      map[string][]model.Candle
	retention time.Duration
	clock     Clock
}

// New creates an empty cache.
func New(opts ...Option) *Rolling {
	r := &Rolling{
		data:      make(map[string][]model.Candle),
		retention: DefaultRetention,
		clock:     SystemClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retention returns the configured retention window.
func (r *Rolling) Retention() time.Duration { return r.retention }

// Update merges a freshly fetched batch into the symbol's history.
//
// The first batch for a symbol becomes its baseline and returns false.
// Afterwards the last two bars of a batch are upserted (second-to-last is
// the closed bar, last is the open bar; a single-bar batch only upserts the
// open bar) and Update returns true whether or not any value changed.
// An empty batch is a no-op and returns false.
func (r *Rolling) Update(symbol string, batch []model.Candle) bool {
	if len(batch) == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, primed := r.data[symbol]
	if !primed {
		r.data[symbol] = r.evict(normalize(batch))
		return false
	}

	merged := make([]model.Candle, len(existing), len(existing)+2)
	copy(merged, existing)
	if n := len(batch); n >= 2 {
		merged = upsert(merged, batch[n-2])
	}
	merged = upsert(merged, batch[len(batch)-1])

	r.data[symbol] = r.evict(merged)
	return true
}

// Get returns a copy of the retained history for symbol. The boolean is
// false when the symbol has never been loaded.
func (r *Rolling) Get(symbol string) ([]model.Candle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.data[symbol]
	if !ok {
		return nil, false
	}
	return slices.Clone(h), true
}

// Len returns the number of retained bars for symbol.
func (r *Rolling) Len(symbol string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data[symbol])
}

// Last returns the most recent bar for symbol.
func (r *Rolling) Last(symbol string) (model.Candle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.data[symbol]
	if len(h) == 0 {
		return model.Candle{}, false
	}
	return h[len(h)-1], true
}

// Symbols returns the loaded symbols in lexical order.
func (r *Rolling) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.data))
	for s := range r.data {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// evict drops bars older than the clock's cutoff. history must be sorted.
func (r *Rolling) evict(history []model.Candle) []model.Candle {
	if len(history) == 0 {
		return []model.Candle{}
	}
	cutoff := r.clock.Cutoff(history, r.retention)
	i := sort.Search(len(history), func(i int) bool {
		return !history[i].Time.Before(cutoff)
	})
	if i == 0 {
		return history
	}
	return slices.Clone(history[i:])
}

// normalize returns a sorted copy of batch with one bar per time; on a
// duplicate time the later bar in the batch wins.
func normalize(batch []model.Candle) []model.Candle {
	out := slices.Clone(batch)
	slices.SortStableFunc(out, compareTime)

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time.Equal(out[i].Time) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// upsert overwrites the bar with c's time or inserts c in order.
func upsert(history []model.Candle, c model.Candle) []model.Candle {
	i, found := slices.BinarySearchFunc(history, c.Time, func(e model.Candle, t time.Time) int {
		return e.Time.Compare(t)
	})
	if found {
		history[i] = c
		return history
	}
	return slices.Insert(history, i, c)
}

func compareTime(a, b model.Candle) int {
	return a.Time.Compare(b.Time)
}
