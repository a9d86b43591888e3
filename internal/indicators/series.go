// Package indicators computes technical indicator series over a candle slice.
//
// Every function returns only the defined values, so a series is shorter than
// its input by the indicator's warm-up. The caller aligns the tail of the
// series with the tail of the candles.
package indicators

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Kind identifies an indicator family
type Kind string

const (
	KindEMA Kind = "EMA"
	KindATR Kind = "ATR"
	KindRSI Kind = "RSI"
	KindADX Kind = "ADX"
)

// Spec requests one series under a role name such as "fast" or "adx"
type Spec struct {
	Role   string `json:"role" yaml:"role"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Period int    `json:"period" yaml:"period"`
}

// Series is a computed indicator. Undefined values are NaN.
type Series struct {
	Kind   Kind
	Period int
	Values []float64
}

// Label is the source tag of the series, e.g. "EMA(7)"
func (s Series) Label() string {
	return fmt.Sprintf("%s(%d)", s.Kind, s.Period)
}

// Len returns the number of values
func (s Series) Len() int {
	return len(s.Values)
}

// Set holds the series required by a strategy, keyed by role
type Set map[string]Series

// Compute builds every requested series from the candles
func Compute(candles []types.Candle, specs []Spec) (Set, error) {
	set := make(Set, len(specs))
	for _, spec := range specs {
		if spec.Period <= 0 {
			return nil, fmt.Errorf("indicator %s for role %q: period must be positive, got %d", spec.Kind, spec.Role, spec.Period)
		}
		if _, dup := set[spec.Role]; dup {
			return nil, fmt.Errorf("duplicate indicator role %q", spec.Role)
		}

		var values []float64
		switch spec.Kind {
		case KindEMA:
			values = EMA(types.Closes(candles), spec.Period)
		case KindATR:
			values = ATR(candles, spec.Period)
		case KindRSI:
			values = RSI(types.Closes(candles), spec.Period)
		case KindADX:
			values = ADX(candles, spec.Period)
		default:
			return nil, fmt.Errorf("unknown indicator kind %q", spec.Kind)
		}

		set[spec.Role] = Series{Kind: spec.Kind, Period: spec.Period, Values: values}
	}
	return set, nil
}

// trueRange of a candle against the previous close
func trueRange(current types.Candle, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
