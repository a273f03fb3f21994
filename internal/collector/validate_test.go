package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"CandleFeed/internal/model"
)

func TestValidateBatch(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	good := func(d int) model.Candle {
		return model.Candle{Time: t0.AddDate(0, 0, d), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}
	}

	tests := []struct {
		name    string
		bars    []model.Candle
		wantIdx int
	}{
		{"empty", nil, -1},
		{"ascending", []model.Candle{good(0), good(1)}, -1},
		{"duplicate time allowed", []model.Candle{good(0), good(0)}, -1},
		{"zero time", []model.Candle{good(0), {Open: 1, High: 1, Low: 1, Close: 1}}, 1},
		{"backwards", []model.Candle{good(1), good(0)}, 1},
		{"nan price", []model.Candle{func() model.Candle { c := good(0); c.Close = math.NaN(); return c }()}, 0},
		{"negative price", []model.Candle{func() model.Candle { c := good(0); c.Low = -1; return c }()}, 0},
		{"high below low", []model.Candle{func() model.Candle { c := good(0); c.High = 8; return c }()}, 0},
		{"negative volume", []model.Candle{good(0), func() model.Candle { c := good(1); c.Volume = -5; return c }()}, 1},
	}
	for _, tt := range tests {
		err := ValidateBatch(tt.bars)
		if tt.wantIdx < 0 {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		var bad *InvalidBarError
		if !errors.As(err, &bad) {
			t.Errorf("%s: expected InvalidBarError, got %v", tt.name, err)
			continue
		}
		if bad.Index != tt.wantIdx {
			t.Errorf("%s: index = %d, want %d", tt.name, bad.Index, tt.wantIdx)
		}
	}
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2d", 2},
		{"1wk", 7},
		{"6mo", 180},
		{"1y", 365},
	}
	for _, tt := range tests {
		got, err := PeriodDays(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("PeriodDays(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"", "max", "0d", "xmo"} {
		if _, err := PeriodDays(bad); err == nil {
			t.Errorf("PeriodDays(%q) should fail", bad)
		}
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
		{"1wk", 7 * 24 * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := IntervalDuration(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("IntervalDuration(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestMockFetcher(t *testing.T) {
	m := NewMockFetcher()
	first := []model.Candle{{Time: time.Unix(1, 0), Close: 1}}
	steady := []model.Candle{{Time: time.Unix(2, 0), Close: 2}}
	m.Push("A", first)
	m.Set("A", steady)

	ctx := context.Background()
	got, _ := m.FetchBars(ctx, "A", "6mo", "1d")
	if len(got) != 1 || got[0].Close != 1 {
		t.Errorf("expected queued batch first, got %+v", got)
	}
	got, _ = m.FetchBars(ctx, "A", "2d", "1d")
	if len(got) != 1 || got[0].Close != 2 {
		t.Errorf("expected steady batch, got %+v", got)
	}

	m.Fail("A", errors.New("down"))
	if _, err := m.FetchBars(ctx, "A", "2d", "1d"); err == nil {
		t.Error("expected injected failure")
	}
	m.Fail("A", nil)

	if got, err := m.FetchBars(ctx, "B", "2d", "1d"); err != nil || len(got) != 0 {
		t.Errorf("unknown symbol without price should be empty, got %+v, %v", got, err)
	}
	m.Price = 50
	if got, _ := m.FetchBars(ctx, "B", "5d", "1d"); len(got) != 5 {
		t.Errorf("expected 5 generated bars, got %d", len(got))
	}

	calls := m.Calls()
	if len(calls) != 5 || calls[1].Period != "2d" {
		t.Errorf("unexpected calls %+v", calls)
	}
}
