package indicator

import (
	"math"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// Validate checks the series invariants the engine relies on: non-empty,
// strictly increasing timestamps, finite positive prices, finite
// non-negative volume.
func Validate(series model.PriceSeries) error {
	if len(series.Bars) == 0 {
		return &InvalidInputError{Index: -1, Reason: "series is empty"}
	}
	for i, b := range series.Bars {
		if b.Time.IsZero() {
			return &InvalidInputError{Index: i, Reason: "missing timestamp"}
		}
		if i > 0 && !b.Time.After(series.Bars[i-1].Time) {
			return &InvalidInputError{Index: i, Reason: "timestamps not strictly increasing"}
		}
		for _, p := range [...]struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if math.IsNaN(p.v) || math.IsInf(p.v, 0) {
				return &InvalidInputError{Index: i, Reason: p.name + " is not a finite number"}
			}
			if p.v <= 0 {
				return &InvalidInputError{Index: i, Reason: p.name + " must be positive"}
			}
		}
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) {
			return &InvalidInputError{Index: i, Reason: "volume is not a finite number"}
		}
		if b.Volume < 0 {
			return &InvalidInputError{Index: i, Reason: "volume must not be negative"}
		}
	}
	return nil
}
