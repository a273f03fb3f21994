// Package portfolio tracks account sizing and open positions for the
// strategy, with optional JSON persistence.
package portfolio

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"CandleFeed/internal/model"
)

// Default sizing used when the configuration leaves them unset.
const (
	DefaultAccountSize = 100_000.0
	DefaultRiskPct     = 0.02
)

// Manager handles position bookkeeping with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.PortfolioState
	filePath string
	logger   *slog.Logger
}

// NewManager creates a Manager, loading or initializing state from disk.
// An empty filePath keeps state in memory.
func NewManager(filePath string, accountSize, riskPct float64, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load portfolio state: %w", err)
	}

	// Initialize if fresh state
	if state.AccountSize == 0 {
		state.AccountSize = accountSize
		if state.AccountSize <= 0 {
			state.AccountSize = DefaultAccountSize
		}
	}
	if state.RiskPct == 0 {
		state.RiskPct = riskPct
		if state.RiskPct <= 0 {
			state.RiskPct = DefaultRiskPct
		}
	}
	if state.Positions == nil {
		state.Positions = make(map[string]*model.Position)
	}

	m := &Manager{state: state, filePath: filePath, logger: logger}
	if err := m.save(); err != nil {
		return nil, fmt.Errorf("save portfolio state: %w", err)
	}
	return m, nil
}

// GetState returns a deep copy of the current state.
func (m *Manager) GetState() model.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *m.state
	s.Positions = make(map[string]*model.Position, len(m.state.Positions))
	for k, p := range m.state.Positions {
		cp := *p
		s.Positions[k] = &cp
	}
	return s
}

// RiskAmount is the dollar amount risked per trade.
func (m *Manager) RiskAmount() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riskAmount().InexactFloat64()
}

func (m *Manager) riskAmount() decimal.Decimal {
	return decimal.NewFromFloat(m.state.AccountSize).Mul(decimal.NewFromFloat(m.state.RiskPct))
}

// SharesFor sizes a position so that a stop hit loses RiskAmount.
// Returns zero when stopDistance is not positive.
func (m *Manager) SharesFor(stopDistance float64) int64 {
	if stopDistance <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riskAmount().Div(decimal.NewFromFloat(stopDistance)).IntPart()
}

// HasPosition reports whether symbol has an open position.
func (m *Manager) HasPosition(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.Positions[symbol]
	return ok
}

// GetPosition returns the open position for symbol.
func (m *Manager) GetPosition(symbol string) (model.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.Positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Positions returns the open positions ordered by symbol.
func (m *Manager) Positions() []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Position, 0, len(m.state.Positions))
	for _, p := range m.state.Positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// OpenPosition records a new position. Only one position per symbol is allowed.
func (m *Manager) OpenPosition(symbol string, entryPrice float64, shares int64, stopLoss float64, entryDate time.Time) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.Positions[symbol]; ok {
		return model.Position{}, fmt.Errorf("position already open for %s", symbol)
	}
	if shares <= 0 {
		return model.Position{}, fmt.Errorf("invalid share count %d", shares)
	}
	p := &model.Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		EntryPrice: entryPrice,
		Shares:     shares,
		StopLoss:   stopLoss,
		EntryDate:  entryDate,
	}
	m.state.Positions[symbol] = p

	if err := m.save(); err != nil {
		m.logger.Error("failed to save portfolio state", "err", err)
	}
	return *p, nil
}

// ClosePosition closes the open position for symbol at exitPrice and returns
// its PnL. The boolean is false when no position was open.
func (m *Manager) ClosePosition(symbol string, exitPrice float64, reason model.ExitReason) (*model.ExitResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.Positions[symbol]
	if !ok {
		return nil, false
	}
	delete(m.state.Positions, symbol)

	entry := decimal.NewFromFloat(p.EntryPrice)
	diff := decimal.NewFromFloat(exitPrice).Sub(entry)
	pnl := diff.Mul(decimal.NewFromInt(p.Shares))
	var pnlPct decimal.Decimal
	if !entry.IsZero() {
		pnlPct = diff.Div(entry).Mul(decimal.NewFromInt(100))
	}

	m.state.ClosedTrades++
	m.state.RealizedPnL = decimal.NewFromFloat(m.state.RealizedPnL).Add(pnl).InexactFloat64()

	if err := m.save(); err != nil {
		m.logger.Error("failed to save portfolio state", "err", err)
	}

	return &model.ExitResult{
		Symbol:     symbol,
		PositionID: p.ID,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Shares:     p.Shares,
		PnL:        pnl.InexactFloat64(),
		PnLPct:     pnlPct.InexactFloat64(),
		Reason:     reason,
	}, true
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
