package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CandleFeed/internal/model"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.BaseURL = srv.URL
	n.Client = srv.Client()
	return n
}

func TestSendPostsMessage(t *testing.T) {
	var gotPath string
	var payload map[string]string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	})

	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if payload["chat_id"] != "42" || payload["text"] != "hello" || payload["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSendReportsStatus(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	})
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestSendWithRetryStopsOnCancel(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := n.SendWithRetry(ctx, "x", 5); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("retry loop ignored cancellation")
	}
}

func TestNotifyDisabledIsNoop(t *testing.T) {
	n := NewTelegramNotifier("", "", "", nil)
	if n.Enabled() {
		t.Fatal("expected disabled notifier")
	}
	if err := n.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestDispatchRepliesAndAdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		replies = append(replies, p["text"])
		mu.Unlock()
	})

	body := []byte(`{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /status "}},
		{"update_id":8},
		{"update_id":9,"message":{"text":"/unknown"}}
	]}`)
	var seen []string
	offset := n.dispatch(context.Background(), body, 0, func(cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/status" {
			return "ok"
		}
		return ""
	})

	if offset != 10 {
		t.Errorf("offset = %d, want 10", offset)
	}
	if len(seen) != 2 || seen[0] != "/status" {
		t.Errorf("commands = %v", seen)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "ok" {
		t.Errorf("replies = %v", replies)
	}
}

func TestDispatchBadJSONKeepsOffset(t *testing.T) {
	n := NewTelegramNotifier("T", "1", "", nil)
	if got := n.dispatch(context.Background(), []byte("{"), 5, nil); got != 5 {
		t.Errorf("offset = %d, want 5", got)
	}
}

func TestFormatters(t *testing.T) {
	order := FormatOrder(&model.Order{Symbol: "AAPL", Shares: 3333, EntryPrice: 14.5, StopLoss: 13.9, StopDistance: 0.6, ATR: 0.8, RiskAmount: 2000})
	if !strings.Contains(order, "BUY AAPL") || !strings.Contains(order, "3333 @ 14.50") {
		t.Errorf("order = %q", order)
	}

	exit := FormatExit(&model.ExitResult{Symbol: "AAPL", Shares: 10, EntryPrice: 10, ExitPrice: 9, PnL: -10, PnLPct: -10, Reason: model.ExitTrailingSMA10})
	if !strings.Contains(exit, "🔴") || !strings.Contains(exit, "trailing_stop_10sma") {
		t.Errorf("exit = %q", exit)
	}

	report := FormatLoadReport(map[string]int{"MSFT": 2, "AAPL": 125})
	if report != "[AAPL] loaded 125 candles\n[MSFT] loaded 2 candles\n" {
		t.Errorf("report = %q", report)
	}

	now := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	rows := []SymbolSummary{
		{Symbol: "AAPL", Bars: 2, Loaded: true, Last: model.Candle{Time: now, Close: 101.5}},
		{Symbol: "MSFT"},
	}
	digest := FormatDigest(now, rows, time.Time{}, model.PortfolioState{AccountSize: 100000, RiskPct: 0.02}, nil)
	for _, want := range []string{"Last poll: never", "AAPL: 2 bars", "close 101.50", "MSFT: not loaded", "No open positions", "Risk: 2.0%"} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}
