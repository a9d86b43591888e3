package backtest

import (
	"encoding/json"
	"math"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// ReasonCount is the outcome split of the trades closed for one exit reason
type ReasonCount struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Nulls  int `json:"nulls"`
}

// Summary aggregates a trade ledger
type Summary struct {
	Total     int     `json:"total"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Nulls     int     `json:"nulls"`
	Longs     int     `json:"longs"`
	Shorts    int     `json:"shorts"`
	WinRate   float64 `json:"winRate"`
	ProfitPct float64 `json:"profitPct"`
	NetPnL    float64 `json:"netPnl"`

	// RegimeWinRate is NaN for a regime without trades
	RegimeWinRate map[types.Regime]float64         `json:"regimeWinRate"`
	RegimeTrades  map[types.Regime]int             `json:"regimeTrades"`
	ExitReasons   map[types.ExitReason]ReasonCount `json:"exitReasons"`

	ProfitFactor float64 `json:"profitFactor"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	AvgTradePct  float64 `json:"avgTradePct"`
}

// Summarize derives the summary from the ledger. It never fails; a zero-trade
// ledger yields zero counts, a zero win rate and NaN regime win rates.
func Summarize(balanceStart, balanceEnd float64, trades []Trade) Summary {
	s := Summary{
		Total:         len(trades),
		NetPnL:        balanceEnd - balanceStart,
		RegimeWinRate: make(map[types.Regime]float64, 2),
		RegimeTrades:  make(map[types.Regime]int, 2),
		ExitReasons:   make(map[types.ExitReason]ReasonCount, 3),
	}
	if balanceStart != 0 {
		s.ProfitPct = (balanceEnd - balanceStart) / balanceStart * 100
	}

	regimeWins := make(map[types.Regime]int, 2)
	sumPct := 0.0
	for _, t := range trades {
		rc := s.ExitReasons[t.ExitReason]
		switch t.Result {
		case types.ResultWin:
			s.Wins++
			rc.Wins++
			regimeWins[t.Regime]++
		case types.ResultLoss:
			s.Losses++
			rc.Losses++
		default:
			s.Nulls++
			rc.Nulls++
		}
		s.ExitReasons[t.ExitReason] = rc
		s.RegimeTrades[t.Regime]++

		if t.Side == types.SideLong {
			s.Longs++
		} else {
			s.Shorts++
		}
		sumPct += t.ProfitPct
	}

	if s.Total > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Total) * 100
		s.AvgTradePct = sumPct / float64(s.Total)
	}

	for _, regime := range []types.Regime{types.RegimeTrend, types.RegimeRange} {
		n := s.RegimeTrades[regime]
		if n == 0 {
			s.RegimeWinRate[regime] = math.NaN()
			continue
		}
		s.RegimeWinRate[regime] = float64(regimeWins[regime]) / float64(n) * 100
	}

	s.ProfitFactor = ProfitFactor(trades)
	s.MaxDrawdown = MaxDrawdown(balanceStart, trades)
	s.SharpeRatio = SharpeRatio(trades)
	return s
}

// SharpeRatio of per-trade returns with a zero risk-free rate
func SharpeRatio(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	avgReturn := 0.0
	for _, t := range trades {
		avgReturn += t.ReturnPct
	}
	avgReturn /= float64(len(trades))

	variance := 0.0
	for _, t := range trades {
		variance += math.Pow(t.ReturnPct-avgReturn, 2)
	}
	variance /= float64(len(trades))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avgReturn / stdDev
}

// ProfitFactor is gross profit over gross loss; +Inf with profits and no losses
func ProfitFactor(trades []Trade) float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			totalProfit += t.PnL
		} else {
			totalLoss += math.Abs(t.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// MaxDrawdown is the largest peak-to-trough fall of the realised balance, as a fraction
func MaxDrawdown(balanceStart float64, trades []Trade) float64 {
	peak := balanceStart
	maxDD := 0.0
	for _, t := range trades {
		if t.BalanceAfter > peak {
			peak = t.BalanceAfter
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - t.BalanceAfter) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// MarshalJSON writes NaN and infinite values as null
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	out := struct {
		plain
		RegimeWinRate map[types.Regime]*float64 `json:"regimeWinRate"`
		ProfitFactor  *float64                  `json:"profitFactor"`
	}{
		plain:         plain(s),
		RegimeWinRate: make(map[types.Regime]*float64, len(s.RegimeWinRate)),
		ProfitFactor:  finiteOrNil(s.ProfitFactor),
	}
	for regime, rate := range s.RegimeWinRate {
		out.RegimeWinRate[regime] = finiteOrNil(rate)
	}
	return json.Marshal(out)
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
