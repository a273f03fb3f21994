package calculator

import (
	"errors"
	"math"

	"CandleFeed/internal/model"
)

// HighestHigh returns the index and value of the highest high in bars.
// The first occurrence wins on ties.
func HighestHigh(bars []model.Candle) (idx int, high float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	for i, b := range bars {
		if b.High > high {
			idx, high = i, b.High
		}
	}
	return idx, high, nil
}

// LowestLow returns the lowest low in bars.
func LowestLow(bars []model.Candle) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	low := math.Inf(1)
	for _, b := range bars {
		if b.Low < low {
			low = b.Low
		}
	}
	return low, nil
}
