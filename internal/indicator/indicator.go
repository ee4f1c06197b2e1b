// Package indicator computes the chart overlays drawn over a daily price series.
//
// The set of indicators is closed: SMA20, EMA20, BBANDS20 and VWAP. Every
// computation is a pure function of the series; values that lack enough
// trailing history are NaN, never zero.
package indicator

import (
	"fmt"
	"strings"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// Kind identifies one supported indicator.
type Kind int

const (
	SMA20 Kind = iota + 1
	EMA20
	BBANDS20
	VWAP
)

// Window is the trailing window shared by SMA20, EMA20 span and BBANDS20.
const Window = 20

// BandWidth is the number of standard deviations for the Bollinger envelope.
const BandWidth = 2.0

// Kinds lists every supported indicator in display order.
var Kinds = []Kind{SMA20, EMA20, BBANDS20, VWAP}

// String returns the canonical identifier.
func (k Kind) String() string {
	switch k {
	case SMA20:
		return "SMA20"
	case EMA20:
		return "EMA20"
	case BBANDS20:
		return "BBANDS20"
	case VWAP:
		return "VWAP"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Label returns the dashboard label.
func (k Kind) Label() string {
	switch k {
	case SMA20:
		return "20-Day SMA"
	case EMA20:
		return "20-Day EMA"
	case BBANDS20:
		return "20-Day Bollinger Bands"
	case VWAP:
		return "VWAP"
	}
	return k.String()
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, err := ParseKind(k.String()); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts a canonical identifier (case-insensitive) or a dashboard label.
func ParseKind(name string) (Kind, error) {
	trimmed := strings.TrimSpace(name)
	for _, k := range Kinds {
		if strings.EqualFold(trimmed, k.String()) || strings.EqualFold(trimmed, k.Label()) {
			return k, nil
		}
	}
	return 0, &UnknownIndicatorError{Name: name}
}

// ParseKinds parses every name, failing on the first unknown one.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Compute derives the overlays for one indicator. BBANDS20 yields two
// overlays (upper, lower); the others yield one.
func Compute(kind Kind, series model.PriceSeries) ([]model.Overlay, error) {
	if err := Validate(series); err != nil {
		return nil, err
	}
	closes := series.Closes()

	switch kind {
	case SMA20:
		return []model.Overlay{overlay("SMA (20)", series, SMA(closes, Window))}, nil
	case EMA20:
		return []model.Overlay{overlay("EMA (20)", series, EMA(closes, Window))}, nil
	case BBANDS20:
		upper, lower := BollingerBands(closes, Window, BandWidth)
		return []model.Overlay{
			overlay("BB Upper", series, upper),
			overlay("BB Lower", series, lower),
		}, nil
	case VWAP:
		volumes := make([]float64, len(series.Bars))
		for i, b := range series.Bars {
			volumes[i] = b.Volume
		}
		return []model.Overlay{overlay("VWAP", series, CumulativeVWAP(closes, volumes))}, nil
	}
	return nil, &UnknownIndicatorError{Name: kind.String()}
}

// ComputeAll derives the overlays for every requested indicator in order.
// Any failure discards all output.
func ComputeAll(kinds []Kind, series model.PriceSeries) ([]model.Overlay, error) {
	var out []model.Overlay
	for _, k := range kinds {
		ov, err := Compute(k, series)
		if err != nil {
			return nil, err
		}
		out = append(out, ov...)
	}
	return out, nil
}

func overlay(name string, series model.PriceSeries, values []float64) model.Overlay {
	points := make([]model.Point, len(values))
	for i, v := range values {
		points[i] = model.Point{Time: series.Bars[i].Time, Value: v}
	}
	return model.Overlay{Name: name, Points: points}
}
