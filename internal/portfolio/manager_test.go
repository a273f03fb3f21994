package portfolio

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"CandleFeed/internal/model"
)

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager("", 0, 0, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	s := m.GetState()
	if s.AccountSize != DefaultAccountSize || s.RiskPct != DefaultRiskPct {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if got := m.RiskAmount(); got != 2000 {
		t.Errorf("RiskAmount = %v, want 2000", got)
	}
}

func TestSharesFor(t *testing.T) {
	m, _ := NewManager("", 100_000, 0.02, nil)
	tests := []struct {
		stop float64
		want int64
	}{
		{2.5, 800},
		{3, 666},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := m.SharesFor(tt.stop); got != tt.want {
			t.Errorf("SharesFor(%v) = %d, want %d", tt.stop, got, tt.want)
		}
	}
}

func TestOpenAndClosePosition(t *testing.T) {
	m, _ := NewManager("", 100_000, 0.02, nil)
	entry := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	p, err := m.OpenPosition("TSLA", 200, 100, 190, entry)
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if p.ID == "" || !m.HasPosition("TSLA") {
		t.Fatal("position not recorded")
	}
	if _, err := m.OpenPosition("TSLA", 210, 10, 200, entry); err == nil {
		t.Error("expected error opening a second position")
	}

	res, ok := m.ClosePosition("TSLA", 210.5, model.ExitTrailingSMA10)
	if !ok {
		t.Fatal("ClosePosition reported no position")
	}
	if res.PnL != 1050 || math.Abs(res.PnLPct-5.25) > 1e-9 || res.PositionID != p.ID {
		t.Errorf("unexpected exit: %+v", res)
	}
	if m.HasPosition("TSLA") {
		t.Error("position still open after close")
	}
	if _, ok := m.ClosePosition("TSLA", 1, model.ExitTrailingSMA10); ok {
		t.Error("closing twice should report false")
	}

	s := m.GetState()
	if s.ClosedTrades != 1 || s.RealizedPnL != 1050 {
		t.Errorf("unexpected totals: %+v", s)
	}
}

func TestGetState_IsCopy(t *testing.T) {
	m, _ := NewManager("", 0, 0, nil)
	m.OpenPosition("A", 10, 5, 9, time.Now())

	s := m.GetState()
	s.Positions["A"].Shares = 999
	if p, _ := m.GetPosition("A"); p.Shares != 5 {
		t.Error("GetState leaked internal position")
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "portfolio.json")
	m, err := NewManager(path, 50_000, 0.01, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.OpenPosition("MSFT", 400, 10, 390, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))
	m.OpenPosition("AAPL", 200, 10, 195, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))

	reloaded, err := NewManager(path, 1, 1, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	s := reloaded.GetState()
	if s.AccountSize != 50_000 || s.RiskPct != 0.01 {
		t.Errorf("sizing not persisted: %+v", s)
	}
	ps := reloaded.Positions()
	if len(ps) != 2 || ps[0].Symbol != "AAPL" || ps[1].Symbol != "MSFT" {
		t.Errorf("positions = %+v", ps)
	}
}
