package indicator

import "math"

// RollingStdDev returns the trailing sample standard deviation (n-1
// denominator). Indices before period-1 are NaN, as is every index when
// period < 2.
func RollingStdDev(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		m := mean(window)
		ss := 0.0
		for _, v := range window {
			ss += (v - m) * (v - m)
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// BollingerBands returns SMA ± k·stddev over the trailing window.
func BollingerBands(values []float64, period int, k float64) (upper, lower []float64) {
	sma := SMA(values, period)
	std := RollingStdDev(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		upper[i] = sma[i] + k*std[i]
		lower[i] = sma[i] - k*std[i]
	}
	return upper, lower
}
