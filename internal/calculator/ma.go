package calculator

import (
	"errors"

	"CandleFeed/internal/model"
)

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// CloseSMA returns the simple moving average of the last period closes.
func CloseSMA(bars []model.Candle, period int) (float64, error) {
	return CalculateSMA(model.Closes(bars), period)
}

// AverageVolume returns the mean volume of the last period bars.
func AverageVolume(bars []model.Candle, period int) (float64, error) {
	return CalculateSMA(model.Volumes(bars), period)
}
