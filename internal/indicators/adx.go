package indicators

import (
	"math"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// ADX computes the Average Directional Index (0-100, trend strength regardless of direction).
//
// Smoothed TR and DM start at candle period, DX from there on, and the first ADX
// is the mean of period DX values. The result has len(candles)-2*period+1 entries.
func ADX(candles []types.Candle, period int) []float64 {
	if period <= 0 || len(candles) < 2*period {
		return []float64{}
	}

	n := len(candles) - 1
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < len(candles); i++ {
		current := candles[i]
		previous := candles[i-1]

		tr[i-1] = trueRange(current, previous.Close)

		highDiff := current.High - previous.High
		lowDiff := previous.Low - current.Low
		if highDiff > lowDiff && highDiff > 0 {
			plusDM[i-1] = highDiff
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM[i-1] = lowDiff
		}
	}

	p := float64(period)
	var trSum, plusSum, minusSum float64
	for i := 0; i < period; i++ {
		trSum += tr[i]
		plusSum += plusDM[i]
		minusSum += minusDM[i]
	}

	dx := make([]float64, 0, n-period+1)
	dx = append(dx, dxValue(trSum, plusSum, minusSum))
	for i := period; i < n; i++ {
		// Wilder's smoothing
		trSum = trSum - trSum/p + tr[i]
		plusSum = plusSum - plusSum/p + plusDM[i]
		minusSum = minusSum - minusSum/p + minusDM[i]
		dx = append(dx, dxValue(trSum, plusSum, minusSum))
	}

	if len(dx) < period {
		return []float64{}
	}

	out := make([]float64, 0, len(dx)-period+1)
	last := mean(dx[:period])
	out = append(out, last)
	for _, v := range dx[period:] {
		last = (last*(p-1) + v) / p
		out = append(out, last)
	}
	return out
}

func dxValue(trSum, plusSum, minusSum float64) float64 {
	if trSum == 0 {
		return 0
	}
	plusDI := plusSum / trSum * 100
	minusDI := minusSum / trSum * 100
	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / diSum * 100
}
