package strategy

import (
	"fmt"

	"CandleFeed/internal/calculator"
	"CandleFeed/internal/model"
	"CandleFeed/internal/portfolio"
)

const (
	minPrice       = 3.0
	minAvgVolume   = 300_000
	trendPeriod    = 50
	breakoutWindow = 63
	minRunUp       = 0.30
	maxRetracement = 0.25
	minConsolidate = 4
	maxConsolidate = 40
	atrPeriod      = 14
	trailingPeriod = 10
)

// Screen applies the liquidity and trend filters: close above $3, 50-bar
// average volume above 300k and close above the 50-bar SMA.
func Screen(bars []model.Candle) bool {
	if len(bars) < trendPeriod {
		return false
	}
	price := bars[len(bars)-1].Close
	if price <= minPrice {
		return false
	}
	avgVol, err := calculator.AverageVolume(bars, trendPeriod)
	if err != nil || avgVol <= minAvgVolume {
		return false
	}
	sma, err := calculator.CloseSMA(bars, trendPeriod)
	if err != nil || price <= sma {
		return false
	}
	return true
}

// Signal reports a breakout from a consolidation that followed a run-up.
//
// The 63 bars before the latest one must contain a peak at least 30% above
// the lowest low preceding it, followed by 4 to 40 bars (peak included)
// that never retrace 25% from the peak. The latest close must clear the
// consolidation high while the previous close did not.
func Signal(bars []model.Candle) bool {
	if len(bars) < breakoutWindow+1 {
		return false
	}
	window := bars[len(bars)-1-breakoutWindow : len(bars)-1]

	peakIdx, peak, err := calculator.HighestHigh(window)
	if err != nil {
		return false
	}
	base, err := calculator.LowestLow(window[:peakIdx+1])
	if err != nil || base <= 0 {
		return false
	}
	if (peak-base)/base < minRunUp {
		return false
	}

	post := window[peakIdx:]
	if len(post) < minConsolidate || len(post) > maxConsolidate {
		return false
	}
	low, err := calculator.LowestLow(post)
	if err != nil || (peak-low)/peak >= maxRetracement {
		return false
	}
	_, consolidationHigh, err := calculator.HighestHigh(post)
	if err != nil {
		return false
	}

	current := bars[len(bars)-1].Close
	previous := bars[len(bars)-2].Close
	return current > consolidationHigh && previous <= consolidationHigh
}

// Execute sizes and opens a position on the latest bar. The stop sits at
// the smaller of the low-of-day distance and one ATR. A nil order with a nil
// error means no trade was taken.
func Execute(bars []model.Candle, symbol string, pm *portfolio.Manager) (*model.Order, error) {
	if len(bars) < atrPeriod+1 || pm.HasPosition(symbol) {
		return nil, nil
	}
	latest := bars[len(bars)-1]

	atr, err := calculator.CalculateATR(bars, atrPeriod)
	if err != nil {
		return nil, nil
	}

	stopDistance := atr
	if lowDistance := latest.Close - latest.Low; lowDistance > 0 && lowDistance < atr {
		stopDistance = lowDistance
	}
	if stopDistance <= 0 {
		return nil, nil
	}

	shares := pm.SharesFor(stopDistance)
	if shares <= 0 {
		return nil, nil
	}
	stop := latest.Close - stopDistance

	pos, err := pm.OpenPosition(symbol, latest.Close, shares, stop, latest.Time)
	if err != nil {
		return nil, fmt.Errorf("open position %s: %w", symbol, err)
	}
	return &model.Order{
		ID:           pos.ID,
		Symbol:       symbol,
		Shares:       shares,
		EntryPrice:   latest.Close,
		StopLoss:     stop,
		StopDistance: stopDistance,
		ATR:          atr,
		RiskAmount:   pm.RiskAmount(),
	}, nil
}

// CheckExit closes an open position when the latest close falls below the
// 10-bar SMA.
func CheckExit(bars []model.Candle, symbol string, pm *portfolio.Manager) *model.ExitResult {
	if len(bars) < trailingPeriod || !pm.HasPosition(symbol) {
		return nil
	}
	price := bars[len(bars)-1].Close
	sma, err := calculator.CloseSMA(bars, trailingPeriod)
	if err != nil || price >= sma {
		return nil
	}
	res, ok := pm.ClosePosition(symbol, price, model.ExitTrailingSMA10)
	if !ok {
		return nil
	}
	res.SMA10 = sma
	return res
}
