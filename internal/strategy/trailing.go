package strategy

import (
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// TrailingParams configures the risk-sized crossover with noise filter and trailing stop
type TrailingParams struct {
	FastPeriod    int     `json:"fastPeriod" yaml:"fastPeriod" validate:"required,gt=0"`
	SlowPeriod    int     `json:"slowPeriod" yaml:"slowPeriod" validate:"required,gt=0,gtfield=FastPeriod"`
	ATRPeriod     int     `json:"atrPeriod" yaml:"atrPeriod" validate:"required,gt=0"`
	StopATRMult   float64 `json:"stopAtrMult" yaml:"stopAtrMult" validate:"gt=0"`
	RiskPct       float64 `json:"riskPct" yaml:"riskPct" validate:"gt=0,lte=100"`
	Leverage      float64 `json:"leverage" yaml:"leverage" validate:"gt=0"`
	MaxLeverage   float64 `json:"maxLeverage" yaml:"maxLeverage" validate:"gtefield=Leverage"`
	TrendATRRatio float64 `json:"trendAtrRatio" yaml:"trendAtrRatio" validate:"gte=0"`

	// NoiseLookback is the number of closes before the signal bar checked for displacement
	NoiseLookback int `json:"noiseLookback" yaml:"noiseLookback" validate:"gte=0"`
	// NoiseMinPct discards a cross whose displacement from the lookback extreme is at or below it
	NoiseMinPct float64 `json:"noiseMinPct" yaml:"noiseMinPct" validate:"gte=0"`

	BreakevenTriggerPct float64 `json:"breakevenTriggerPct" yaml:"breakevenTriggerPct" validate:"gte=0"`
	TrailStartPct       float64 `json:"trailStartPct" yaml:"trailStartPct" validate:"gt=0"`
	TrailGapPct         float64 `json:"trailGapPct" yaml:"trailGapPct" validate:"gt=0,ltfield=TrailStartPct"`
}

// DefaultTrailingParams returns EMA 7/25, ATR 14, stop 3 ATR, 2% risk at 7x capped at 20x,
// 0.6% noise filter over 5 bars, breakeven at 1.5% and a 1% trail from 2%
func DefaultTrailingParams() TrailingParams {
	return TrailingParams{
		FastPeriod:          7,
		SlowPeriod:          25,
		ATRPeriod:           14,
		StopATRMult:         3,
		RiskPct:             2,
		Leverage:            7,
		MaxLeverage:         risk.DefaultMaxLeverage,
		TrendATRRatio:       DefaultTrendATRRatio,
		NoiseLookback:       5,
		NoiseMinPct:         0.6,
		BreakevenTriggerPct: 1.5,
		TrailStartPct:       2,
		TrailGapPct:         1,
	}
}

// RiskSizedTrailing is the crossover variant sized by fixed fractional risk
type RiskSizedTrailing struct {
	params TrailingParams
	sizer  *risk.RiskSizer
}

// NewRiskSizedTrailing creates the variant
func NewRiskSizedTrailing(p TrailingParams) *RiskSizedTrailing {
	sizer := risk.NewRiskSizer(p.RiskPct, p.Leverage)
	if p.MaxLeverage > 0 {
		sizer.MaxLeverage = p.MaxLeverage
	}
	return &RiskSizedTrailing{params: p, sizer: sizer}
}

func (s *RiskSizedTrailing) Name() string { return VariantRiskSizedTrailing }

func (s *RiskSizedTrailing) Params() interface{} { return s.params }

func (s *RiskSizedTrailing) Trigger() Trigger { return TriggerClose }

func (s *RiskSizedTrailing) Sizer() risk.Sizer { return s.sizer }

func (s *RiskSizedTrailing) StopRules() StopRules {
	return StopRules{
		Breakeven: []BreakevenStep{{TriggerPct: s.params.BreakevenTriggerPct}},
		Trailing:  &TrailingRule{StartPct: s.params.TrailStartPct, GapPct: s.params.TrailGapPct},
	}
}

func (s *RiskSizedTrailing) Requirements() Requirements {
	return crossoverRequirements(s.params.FastPeriod, s.params.SlowPeriod, s.params.ATRPeriod, s.params.NoiseLookback)
}

func (s *RiskSizedTrailing) Entry(t Tick) (EntrySignal, bool) {
	side := crossSide(t)
	if side == types.SideFlat {
		return EntrySignal{}, false
	}
	price := t.Candle.Close
	if s.isNoise(t, side, price) {
		return EntrySignal{}, false
	}

	atr := t.mustValue(RoleATR)
	return EntrySignal{
		Side:   side,
		Stop:   types.OffsetAdverse(side, price, atr*s.params.StopATRMult),
		Regime: atrRegime(atr, price, s.params.TrendATRRatio),
		Reason: "ema cross",
	}, true
}

func (s *RiskSizedTrailing) ShouldExit(t Tick, side types.Side) bool {
	return orderingAgainst(t, side)
}

// isNoise discards a cross when price has not moved far enough from the recent extreme
func (s *RiskSizedTrailing) isNoise(t Tick, side types.Side, price float64) bool {
	if s.params.NoiseLookback == 0 {
		return false
	}
	closes, ok := t.RecentCloses(s.params.NoiseLookback)
	if !ok {
		return true
	}
	return NoiseDisplacementPct(side, price, closes) <= s.params.NoiseMinPct
}

// NoiseDisplacementPct is the move of price away from the lookback extreme in the side's
// direction: from the minimum for a long, from the maximum for a short
func NoiseDisplacementPct(side types.Side, price float64, closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}
	ref := closes[0]
	for _, c := range closes[1:] {
		if side == types.SideLong && c < ref {
			ref = c
		}
		if side == types.SideShort && c > ref {
			ref = c
		}
	}
	return types.FavorablePct(side, ref, price)
}
