package indicators

import "math"

// RSI computes the Relative Strength Index with Wilder smoothing.
// The result has len(prices)-period entries.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return []float64{}
	}

	// Separate gains and losses
	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = math.Abs(change)
		}
	}

	avgGain := mean(gains[:period])
	avgLoss := mean(losses[:period])

	out := make([]float64, 0, len(gains)-period+1)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(p-1) + gains[i]) / p
		avgLoss = (avgLoss*(p-1) + losses[i]) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
