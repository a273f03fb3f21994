package collector

import (
	"context"

	"CandleFeed/internal/model"
)

// Fetcher retrieves candle history from an upstream market data source.
//
// period is a lookback label such as "6mo" or "2d" and interval a bar size
// label such as "1d". Bars are returned in ascending time order. An empty
// result with a nil error means the source had nothing new.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, period, interval string) ([]model.Candle, error)
	Name() string
}
