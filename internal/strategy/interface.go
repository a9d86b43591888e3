package strategy

import (
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Policy supplies the entry, exit and stop rules driven by one position state machine
type Policy interface {
	// Name returns the variant name
	Name() string

	// Requirements lists the indicator series and lookbacks the policy reads
	Requirements() Requirements

	// Trigger selects which candle price is compared against stop and target levels
	Trigger() Trigger

	// StopRules returns the breakeven ladder and trailing rule
	StopRules() StopRules

	// Sizer returns the position sizing rule
	Sizer() risk.Sizer

	// Entry evaluates the flat-state entry signal for the tick
	Entry(t Tick) (EntrySignal, bool)

	// ShouldExit reports an opposing signal for an open position of the given side
	ShouldExit(t Tick, side types.Side) bool

	// Params returns the effective parameters for reporting
	Params() interface{}
}

// Trigger selects how stop and take-profit touches are detected
type Trigger int

const (
	// TriggerClose compares the candle close against the levels
	TriggerClose Trigger = iota
	// TriggerWick compares the adverse or favourable wick (low/high) against the levels
	TriggerWick
)

func (t Trigger) String() string {
	switch t {
	case TriggerClose:
		return "close"
	case TriggerWick:
		return "wick"
	default:
		return "unknown"
	}
}

// AdversePrice is the candle price checked against the stop
func (t Trigger) AdversePrice(c types.Candle, side types.Side) float64 {
	if t == TriggerClose {
		return c.Close
	}
	if side == types.SideShort {
		return c.High
	}
	return c.Low
}

// FavorablePrice is the candle price checked against the take-profit
func (t Trigger) FavorablePrice(c types.Candle, side types.Side) float64 {
	if t == TriggerClose {
		return c.Close
	}
	if side == types.SideShort {
		return c.Low
	}
	return c.High
}

// BreakevenStep moves the stop to entry shifted by LockPct once profit reaches TriggerPct
type BreakevenStep struct {
	TriggerPct float64 `json:"triggerPct" yaml:"triggerPct" validate:"gt=0"`
	LockPct    float64 `json:"lockPct" yaml:"lockPct" validate:"gte=0,ltfield=TriggerPct"`
}

// TrailingRule anchors the stop GapPct behind the close once profit reaches StartPct
type TrailingRule struct {
	StartPct float64 `json:"startPct" yaml:"startPct"`
	GapPct   float64 `json:"gapPct" yaml:"gapPct"`
}

// StopRules configures stop management. A nil Trailing disables trailing.
type StopRules struct {
	Breakeven []BreakevenStep
	Trailing  *TrailingRule
}

// Requirement is one indicator series read by a policy
type Requirement struct {
	indicators.Spec
	// Prev marks a previous-bar read, e.g. for crossover detection
	Prev bool
	// Window is the number of values before the current bar read as a block
	Window int
}

// Requirements lists everything a policy reads on a tick
type Requirements struct {
	Series []Requirement
	// CandleLookback is the number of candles before the current one read directly
	CandleLookback int
}

// Specs returns the indicator specs to compute
func (r Requirements) Specs() []indicators.Spec {
	out := make([]indicators.Spec, len(r.Series))
	for i, s := range r.Series {
		out[i] = s.Spec
	}
	return out
}

// Guard returns how many bars beyond the largest offset the loop must start
func (r Requirements) Guard() int {
	guard := r.CandleLookback
	for _, s := range r.Series {
		if s.Prev && guard < 1 {
			guard = 1
		}
		if s.Window > guard {
			guard = s.Window
		}
	}
	return guard
}

// EntrySignal is a flat-state entry decision
type EntrySignal struct {
	Side       types.Side
	Stop       float64
	TakeProfit float64 // 0 when the policy sets no target
	Regime     types.Regime
	Reason     string
}
