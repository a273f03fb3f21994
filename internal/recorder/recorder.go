package recorder

import "time"

// BarEvent records a change notification delivered for a symbol.
type BarEvent struct {
	Symbol     string
	BarTime    time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	HistoryLen int
}

// TradeEvent records an order or an exit produced by the strategy.
type TradeEvent struct {
	Side       string // "BUY" or "SELL"
	Symbol     string
	PositionID string
	Shares     int64
	Price      float64
	StopLoss   float64
	PnL        float64
	Reason     string
}

// FetchFailure records a per-symbol data source failure.
type FetchFailure struct {
	Symbol string
	Stage  string // "initialize" or "poll"
	Source string
	Error  string
}

// Recorder persists an audit trail of feed activity for later analysis.
type Recorder interface {
	RecordBar(evt *BarEvent) error
	RecordTrade(evt *TradeEvent) error
	RecordFetchFailure(evt *FetchFailure) error
	Close() error
}
