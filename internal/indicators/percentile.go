package indicators

import (
	"math"
	"sort"
)

// Percentile returns the value at floor(pct/100*len) of the sorted window,
// clamped to the last element. The window is not modified. An empty window yields NaN.
func Percentile(window []float64, pct float64) float64 {
	if len(window) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)

	idx := int(math.Floor(pct / 100 * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
