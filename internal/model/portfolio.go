package model

import "time"

// Position is an open long position held by the strategy.
type Position struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	Shares     int64     `json:"shares"`
	StopLoss   float64   `json:"stop_loss"`
	EntryDate  time.Time `json:"entry_date"`
}

// PortfolioState tracks account sizing and open positions.
type PortfolioState struct {
	AccountSize  float64              `json:"account_size"`
	RiskPct      float64              `json:"risk_pct"`
	Positions    map[string]*Position `json:"positions"`
	ClosedTrades int                  `json:"closed_trades"`
	RealizedPnL  float64              `json:"realized_pnl"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
