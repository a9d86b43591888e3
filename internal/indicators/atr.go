package indicators

import "github.com/ducminhle1904/signal-backtester/pkg/types"

// ATR computes the Average True Range with Wilder smoothing.
// True range needs a previous close, so the result has len(candles)-period entries.
func ATR(candles []types.Candle, period int) []float64 {
	if period <= 0 || len(candles) <= period {
		return []float64{}
	}

	tr := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		tr[i-1] = trueRange(candles[i], candles[i-1].Close)
	}

	out := make([]float64, 0, len(tr)-period+1)
	last := mean(tr[:period])
	out = append(out, last)

	p := float64(period)
	for _, v := range tr[period:] {
		last = (last*(p-1) + v) / p
		out = append(out, last)
	}
	return out
}
