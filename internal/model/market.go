package model

import (
	"encoding/json"
	"math"
	"time"
)

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the bars of one fetch, ascending by time.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []OHLCV   `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// First returns the first bar time, or zero time for an empty series.
func (s PriceSeries) First() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Time
}

// Last returns the last bar time, or zero time for an empty series.
func (s PriceSeries) Last() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Time
}

// Point is one overlay value. NaN marks an undefined value.
type Point struct {
	Time  time.Time
	Value float64
}

// Defined reports whether the point carries a value.
func (p Point) Defined() bool { return !math.IsNaN(p.Value) }

// MarshalJSON encodes undefined values as null.
func (p Point) MarshalJSON() ([]byte, error) {
	var v *float64
	if p.Defined() {
		val := p.Value
		v = &val
	}
	return json.Marshal(struct {
		Time  time.Time `json:"time"`
		Value *float64  `json:"value"`
	}{p.Time, v})
}

// Overlay is a named series plotted over the candlesticks.
type Overlay struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Values returns the raw values, NaN included.
func (o Overlay) Values() []float64 {
	vals := make([]float64, len(o.Points))
	for i, p := range o.Points {
		vals[i] = p.Value
	}
	return vals
}

// LastDefined returns the most recent defined value.
func (o Overlay) LastDefined() (float64, bool) {
	for i := len(o.Points) - 1; i >= 0; i-- {
		if o.Points[i].Defined() {
			return o.Points[i].Value, true
		}
	}
	return 0, false
}
