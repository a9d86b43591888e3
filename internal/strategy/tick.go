package strategy

import (
	"math"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Indicators resolves a role's value at a candle index. ok is false when
// the index falls outside the series or the value is NaN.
type Indicators interface {
	Value(role string, candleIndex int) (float64, bool)
}

// Tick is the view of one candle handed to a policy
type Tick struct {
	Index   int
	Candle  types.Candle
	Candles []types.Candle
	Ind     Indicators
}

// Value returns the role's value on the current candle
func (t Tick) Value(role string) (float64, bool) {
	return t.Ind.Value(role, t.Index)
}

// Prev returns the role's value on the previous candle
func (t Tick) Prev(role string) (float64, bool) {
	return t.Ind.Value(role, t.Index-1)
}

// Window returns the n values before the current candle, oldest first
func (t Tick) Window(role string, n int) ([]float64, bool) {
	if n <= 0 || t.Index-n < 0 {
		return nil, false
	}
	out := make([]float64, 0, n)
	for i := t.Index - n; i < t.Index; i++ {
		v, ok := t.Ind.Value(role, i)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// RecentCloses returns the n closes before the current candle
func (t Tick) RecentCloses(n int) ([]float64, bool) {
	if n <= 0 || t.Index-n < 0 || t.Index > len(t.Candles) {
		return nil, false
	}
	return types.Closes(t.Candles[t.Index-n : t.Index]), true
}

// Ready reports whether every value the requirements name is defined on this tick
func (t Tick) Ready(req Requirements) bool {
	if t.Index < req.CandleLookback {
		return false
	}
	for _, s := range req.Series {
		if _, ok := t.Value(s.Role); !ok {
			return false
		}
		if s.Prev {
			if _, ok := t.Prev(s.Role); !ok {
				return false
			}
		}
		if s.Window > 0 {
			if _, ok := t.Window(s.Role, s.Window); !ok {
				return false
			}
		}
	}
	return true
}

// mustValue reads a value already confirmed by Ready
func (t Tick) mustValue(role string) float64 {
	v, ok := t.Value(role)
	if !ok {
		return math.NaN()
	}
	return v
}

func (t Tick) mustPrev(role string) float64 {
	v, ok := t.Prev(role)
	if !ok {
		return math.NaN()
	}
	return v
}
