package indicator

import "math"

// SMA returns the trailing simple moving average. Indices before
// period-1 are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		out[i] = mean(values[i-period+1 : i+1])
	}
	return out
}

// EMA returns the bias-adjusted exponential moving average with the given
// span, alpha = 2/(span+1). Every observation back to index 0 is weighted
// geometrically, so the output is defined from the first value and
// EMA[0] equals values[0].
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span <= 0 {
		return nanSlice(len(values))
	}
	decay := 1 - 2.0/float64(span+1)
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
