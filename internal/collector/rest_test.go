package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CandleFeed/internal/cache"
	"CandleFeed/internal/model"
)

func TestRESTFetcher_FetchBars(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/bars" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "MSFT" || q.Get("period") != "2d" || q.Get("interval") != "1d" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode([]restBar{
			{Timestamp: 1760659200, Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 10},
			{Timestamp: 1760572800, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 20},
		})
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchBars(context.Background(), "MSFT", "2d", "1d")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if len(bars) != 2 || !bars[0].Time.Before(bars[1].Time) {
		t.Fatalf("expected 2 ascending bars, got %+v", bars)
	}
	if bars[0].Close != 1.5 {
		t.Errorf("first close = %v, want 1.5", bars[0].Close)
	}
}

func TestRESTFetcher_WeeklyFallback(t *testing.T) {
	monday := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") == "1wk" {
			http.Error(w, "unsupported", http.StatusNotFound)
			return
		}
		var daily []restBar
		for i := 0; i < 10; i++ {
			d := monday.AddDate(0, 0, i)
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			p := float64(100 + i)
			daily = append(daily, restBar{Timestamp: d.Unix(), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1})
		}
		json.NewEncoder(w).Encode(daily)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "")
	bars, err := f.FetchBars(context.Background(), "X", "1mo", "1wk")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 weekly bars, got %d", len(bars))
	}
	first := bars[0]
	if first.Open != 100 || first.Close != 104 || first.High != 105 || first.Low != 99 || first.Volume != 5 {
		t.Errorf("unexpected first week: %+v", first)
	}
	if !first.Time.Equal(monday) {
		t.Errorf("week keyed at %v, want %v", first.Time, monday)
	}
}

// weekdayBars serves one daily bar per weekday in [from, to], priced by day offset.
func weekdayBars(from, to time.Time) []restBar {
	var daily []restBar
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := float64(100 + d.Day())
		daily = append(daily, restBar{Timestamp: d.Unix(), Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 1})
	}
	return daily
}

func TestRESTFetcher_WeeklyFallbackMidWeekPoll(t *testing.T) {
	var periods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("interval") == "1wk" {
			http.Error(w, "unsupported", http.StatusNotFound)
			return
		}
		periods = append(periods, q.Get("period"))
		// Wednesday poll: the server returns the widened window up to today.
		json.NewEncoder(w).Encode(weekdayBars(
			time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "")
	bars, err := f.FetchBars(context.Background(), "X", "2d", "1wk")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(periods) != 1 || periods[0] != "14d" {
		t.Errorf("daily fallback periods = %v, want [14d]", periods)
	}
	if len(bars) != 2 {
		t.Fatalf("expected closed and open weekly bars, got %+v", bars)
	}
	closed, open := bars[0], bars[1]
	if !closed.Time.Equal(time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)) || closed.Open != 105 || closed.Close != 109.5 || closed.Volume != 5 {
		t.Errorf("closed week = %+v", closed)
	}
	if !open.Time.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)) || open.Open != 112 || open.Close != 114.5 || open.Volume != 3 {
		t.Errorf("open week = %+v", open)
	}
}

func TestWeeklyFallbackPeriod(t *testing.T) {
	tests := map[string]string{"2d": "14d", "1wk": "14d", "14d": "14d", "6mo": "6mo", "bad": "14d"}
	for in, want := range tests {
		if got := weeklyFallbackPeriod(in); got != want {
			t.Errorf("weeklyFallbackPeriod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAggregateDailyToWeekly_KeyedByMonday(t *testing.T) {
	ny := time.FixedZone("EDT", -4*3600)
	day := func(d int) model.Candle {
		p := float64(d)
		return model.Candle{Time: time.Date(2026, 10, d, 0, 0, 0, 0, ny), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1}
	}
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, ny)

	// A window that starts mid-week is still keyed at that week's Monday.
	for _, window := range [][]model.Candle{
		{day(14), day(15)},
		{day(15), day(16)},
	} {
		got := aggregateDailyToWeekly(window)
		if len(got) != 1 || !got[0].Time.Equal(monday) || got[0].Time.Location() != ny {
			t.Errorf("aggregate of %v..%v keyed at %v, want %v", window[0].Time, window[1].Time, got[0].Time, monday)
		}
	}

	// Repeated polls of the same week overwrite one cached bar.
	now := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	c := cache.New(cache.WithClock(cache.Clock{Now: func() time.Time { return now }}))
	c.Update("X", aggregateDailyToWeekly([]model.Candle{day(5), day(6), day(7), day(8), day(9), day(12), day(13)}))
	c.Update("X", aggregateDailyToWeekly([]model.Candle{day(14), day(15)}))
	c.Update("X", aggregateDailyToWeekly([]model.Candle{day(15), day(16)}))
	if n := c.Len("X"); n != 2 {
		history, _ := c.Get("X")
		t.Fatalf("cache holds %d weekly bars, want 2: %+v", n, history)
	}
}

func TestRESTFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "")
	if _, err := f.FetchBars(context.Background(), "X", "2d", "1d"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
