package indicator

import "math"

// CumulativeVWAP returns cumsum(close*volume)/cumsum(volume) using the close
// as the representative price. Indices where the cumulative volume is still
// zero are NaN.
func CumulativeVWAP(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	var pv, vol float64
	for i := range closes {
		pv += closes[i] * volumes[i]
		vol += volumes[i]
		if vol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = pv / vol
	}
	return out
}
