package indicators

// EMA computes the exponential moving average of values.
// The first output is the SMA of the first period values, so the result
// has len(values)-period+1 entries.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	last := mean(values[:period])
	out = append(out, last)

	for _, v := range values[period:] {
		// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
		last = v*alpha + last*(1-alpha)
		out = append(out, last)
	}
	return out
}
