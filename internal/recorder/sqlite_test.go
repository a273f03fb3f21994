package recorder

import (
	"path/filepath"
	"testing"
	"time"
)

func countRows(t *testing.T, r *SQLiteRecorder, table string) int {
	t.Helper()
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLiteRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "feed.db")
	r, err := NewSQLiteRecorder(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	defer r.Close()

	bar := &BarEvent{Symbol: "AAPL", BarTime: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), Close: 101, HistoryLen: 120}
	if err := r.RecordBar(bar); err != nil {
		t.Fatalf("RecordBar: %v", err)
	}
	if err := r.RecordTrade(&TradeEvent{Side: "BUY", Symbol: "AAPL", PositionID: "p1", Shares: 10, Price: 101, StopLoss: 99}); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if err := r.RecordFetchFailure(&FetchFailure{Symbol: "MSFT", Stage: "poll", Source: "yahoo", Error: "timeout"}); err != nil {
		t.Fatalf("RecordFetchFailure: %v", err)
	}

	for table, want := range map[string]int{"bar_updates": 1, "trades": 1, "fetch_failures": 1} {
		if got := countRows(t, r, table); got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	var barTime int64
	var symbol string
	if err := r.db.QueryRow("SELECT symbol, bar_time FROM bar_updates").Scan(&symbol, &barTime); err != nil {
		t.Fatalf("query bar: %v", err)
	}
	if symbol != "AAPL" || barTime != bar.BarTime.Unix() {
		t.Errorf("stored bar = %s@%d", symbol, barTime)
	}
}

func TestSQLiteRecorder_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.db")
	r, err := NewSQLiteRecorder(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.RecordTrade(&TradeEvent{Side: "SELL", Symbol: "TSLA", PnL: 12.5})
	r.Close()

	r2, err := NewSQLiteRecorder(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()
	if got := countRows(t, r2, "trades"); got != 1 {
		t.Errorf("trades rows = %d, want 1", got)
	}
}
