package collector

import (
	"fmt"
	"math"

	"CandleFeed/internal/model"
)

// InvalidBarError reports the first malformed bar in a batch.
type InvalidBarError struct {
	Index  int
	Reason string
}

func (e *InvalidBarError) Error() string {
	return fmt.Sprintf("bar %d: %s", e.Index, e.Reason)
}

// ValidateBatch checks that every bar is well formed and that times never
// go backwards. Equal consecutive times are allowed.
func ValidateBatch(bars []model.Candle) error {
	for i, b := range bars {
		if b.Time.IsZero() {
			return &InvalidBarError{Index: i, Reason: "missing time"}
		}
		for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return &InvalidBarError{Index: i, Reason: "non-finite price"}
			}
			if p < 0 {
				return &InvalidBarError{Index: i, Reason: "negative price"}
			}
		}
		if b.High < b.Low {
			return &InvalidBarError{Index: i, Reason: fmt.Sprintf("high %.4f below low %.4f", b.High, b.Low)}
		}
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			return &InvalidBarError{Index: i, Reason: "invalid volume"}
		}
		if i > 0 && b.Time.Before(bars[i-1].Time) {
			return &InvalidBarError{Index: i, Reason: "time goes backwards"}
		}
	}
	return nil
}
