package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
)

// Aligner maps candle indexes onto indicator indexes.
//
// An indicator series of length L computed over N candles ends on the last
// candle, so its offset is N-L and candle i reads series index i-offset.
type Aligner struct {
	n       int
	series  indicators.Set
	offsets map[string]int
}

// NewAligner computes the offset of every series against n candles
func NewAligner(n int, set indicators.Set) (*Aligner, error) {
	a := &Aligner{
		n:       n,
		series:  set,
		offsets: make(map[string]int, len(set)),
	}
	for role, s := range set {
		if s.Len() > n {
			return nil, fmt.Errorf("series %s %s has %d values for %d candles: %w",
				role, s.Label(), s.Len(), n, errors.ErrIndicatorMisaligned)
		}
		a.offsets[role] = n - s.Len()
	}
	return a, nil
}

// Offset returns the number of leading candles the role has no value for
func (a *Aligner) Offset(role string) int {
	off, ok := a.offsets[role]
	if !ok {
		return a.n
	}
	return off
}

// Index maps a candle index to the role's series index
func (a *Aligner) Index(role string, candleIndex int) int {
	return candleIndex - a.Offset(role)
}

// Value returns the role's value at a candle index. ok is false outside the
// series and for NaN; zero is a regular value.
func (a *Aligner) Value(role string, candleIndex int) (float64, bool) {
	s, found := a.series[role]
	if !found {
		return 0, false
	}
	idx := a.Index(role, candleIndex)
	if idx < 0 || idx >= len(s.Values) {
		return 0, false
	}
	v := s.Values[idx]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// MaxOffset is the largest offset over all series
func (a *Aligner) MaxOffset() int {
	maxOff := 0
	for _, off := range a.offsets {
		if off > maxOff {
			maxOff = off
		}
	}
	return maxOff
}

// Start returns the first candle index the loop may evaluate
func (a *Aligner) Start(guard int) int {
	return a.MaxOffset() + guard
}

// Roles lists the aligned roles in sorted order
func (a *Aligner) Roles() []string {
	roles := make([]string, 0, len(a.offsets))
	for role := range a.offsets {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
