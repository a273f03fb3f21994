package model

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitTrailingSMA10 ExitReason = "trailing_stop_10sma"
)

// Order is a buy order produced by the strategy with its sizing inputs.
type Order struct {
	ID           string
	Symbol       string
	Shares       int64
	EntryPrice   float64
	StopLoss     float64
	StopDistance float64
	ATR          float64
	RiskAmount   float64
}

// ExitResult describes a closed trade.
type ExitResult struct {
	Symbol     string
	PositionID string
	EntryPrice float64
	ExitPrice  float64
	Shares     int64
	PnL        float64
	PnLPct     float64
	Reason     ExitReason
	SMA10      float64
}
