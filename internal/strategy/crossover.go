package strategy

import (
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Indicator roles shared by the crossover variants
const (
	RoleFast = "fast"
	RoleSlow = "slow"
	RoleATR  = "atr"
)

// DefaultTrendATRRatio classifies a crossover entry as trend when atr > price * ratio
const DefaultTrendATRRatio = 0.005

// CrossoverParams configures the fixed-stop EMA crossover
type CrossoverParams struct {
	FastPeriod    int     `json:"fastPeriod" yaml:"fastPeriod" validate:"required,gt=0"`
	SlowPeriod    int     `json:"slowPeriod" yaml:"slowPeriod" validate:"required,gt=0,gtfield=FastPeriod"`
	ATRPeriod     int     `json:"atrPeriod" yaml:"atrPeriod" validate:"required,gt=0"`
	StopATRMult   float64 `json:"stopAtrMult" yaml:"stopAtrMult" validate:"gt=0"`
	Leverage      float64 `json:"leverage" yaml:"leverage" validate:"gt=0,lte=125"`
	TrendATRRatio float64 `json:"trendAtrRatio" yaml:"trendAtrRatio" validate:"gte=0"`
	// Breakeven is the stop ladder applied in order
	Breakeven []BreakevenStep `json:"breakeven" yaml:"breakeven" validate:"dive"`
}

// DefaultCrossoverParams returns EMA 7/25, ATR 14, stop 1.5 ATR at 7x with a
// 1% breakeven and a 2% lock of +1%
func DefaultCrossoverParams() CrossoverParams {
	return CrossoverParams{
		FastPeriod:    7,
		SlowPeriod:    25,
		ATRPeriod:     14,
		StopATRMult:   1.5,
		Leverage:      7,
		TrendATRRatio: DefaultTrendATRRatio,
		Breakeven: []BreakevenStep{
			{TriggerPct: 1, LockPct: 0},
			{TriggerPct: 2, LockPct: 1},
		},
	}
}

// FixedCrossover enters on an EMA cross with an ATR stop and exits when the ordering flips
type FixedCrossover struct {
	params CrossoverParams
	sizer  risk.Sizer
}

// NewFixedCrossover creates the variant
func NewFixedCrossover(p CrossoverParams) *FixedCrossover {
	return &FixedCrossover{
		params: p,
		sizer:  risk.NewFixedLeverageSizer(p.Leverage),
	}
}

func (s *FixedCrossover) Name() string { return VariantFixedCrossover }

func (s *FixedCrossover) Params() interface{} { return s.params }

func (s *FixedCrossover) Trigger() Trigger { return TriggerClose }

func (s *FixedCrossover) Sizer() risk.Sizer { return s.sizer }

func (s *FixedCrossover) StopRules() StopRules {
	return StopRules{Breakeven: s.params.Breakeven}
}

func (s *FixedCrossover) Requirements() Requirements {
	return crossoverRequirements(s.params.FastPeriod, s.params.SlowPeriod, s.params.ATRPeriod, 0)
}

func (s *FixedCrossover) Entry(t Tick) (EntrySignal, bool) {
	side := crossSide(t)
	if side == types.SideFlat {
		return EntrySignal{}, false
	}
	price := t.Candle.Close
	atr := t.mustValue(RoleATR)
	return EntrySignal{
		Side:   side,
		Stop:   types.OffsetAdverse(side, price, atr*s.params.StopATRMult),
		Regime: atrRegime(atr, price, s.params.TrendATRRatio),
		Reason: "ema cross",
	}, true
}

func (s *FixedCrossover) ShouldExit(t Tick, side types.Side) bool {
	return orderingAgainst(t, side)
}

func crossoverRequirements(fast, slow, atr, candleLookback int) Requirements {
	return Requirements{
		Series: []Requirement{
			{Spec: indicators.Spec{Role: RoleFast, Kind: indicators.KindEMA, Period: fast}, Prev: true},
			{Spec: indicators.Spec{Role: RoleSlow, Kind: indicators.KindEMA, Period: slow}, Prev: true},
			{Spec: indicators.Spec{Role: RoleATR, Kind: indicators.KindATR, Period: atr}},
		},
		CandleLookback: candleLookback,
	}
}

// crossSide detects a fast/slow cross between the previous and the current bar
func crossSide(t Tick) types.Side {
	fast, slow := t.mustValue(RoleFast), t.mustValue(RoleSlow)
	prevFast, prevSlow := t.mustPrev(RoleFast), t.mustPrev(RoleSlow)

	switch {
	case fast > slow && prevFast < prevSlow:
		return types.SideLong
	case fast < slow && prevFast > prevSlow:
		return types.SideShort
	default:
		return types.SideFlat
	}
}

// orderingAgainst reports whether the current EMA ordering opposes the side
func orderingAgainst(t Tick, side types.Side) bool {
	fast, slow := t.mustValue(RoleFast), t.mustValue(RoleSlow)
	switch side {
	case types.SideLong:
		return fast < slow
	case types.SideShort:
		return fast > slow
	default:
		return false
	}
}

func atrRegime(atr, price, ratio float64) types.Regime {
	if atr > price*ratio {
		return types.RegimeTrend
	}
	return types.RegimeRange
}
