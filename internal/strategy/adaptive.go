package strategy

import (
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// AdaptiveParams configures the regime-switching RSI/ADX variant with percentile bands
type AdaptiveParams struct {
	RSIPeriod int `json:"rsiPeriod" yaml:"rsiPeriod" validate:"required,gt=0"`
	ADXPeriod int `json:"adxPeriod" yaml:"adxPeriod" validate:"required,gt=0"`
	EMAPeriod int `json:"emaPeriod" yaml:"emaPeriod" validate:"required,gt=0"`
	ATRPeriod int `json:"atrPeriod" yaml:"atrPeriod" validate:"required,gt=0"`

	ADXTrendThreshold float64 `json:"adxTrendThreshold" yaml:"adxTrendThreshold" validate:"gt=0,lte=100"`
	ADXRangeThreshold float64 `json:"adxRangeThreshold" yaml:"adxRangeThreshold" validate:"gt=0,ltefield=ADXTrendThreshold"`

	TrendStopATRMult float64 `json:"trendStopAtrMult" yaml:"trendStopAtrMult" validate:"gt=0"`
	TrendTPATRMult   float64 `json:"trendTpAtrMult" yaml:"trendTpAtrMult" validate:"gt=0"`
	RangeStopATRMult float64 `json:"rangeStopAtrMult" yaml:"rangeStopAtrMult" validate:"gt=0"`
	RangeTPATRMult   float64 `json:"rangeTpAtrMult" yaml:"rangeTpAtrMult" validate:"gt=0"`

	// Trend entries require TrendRSILow < rsi < TrendRSIHigh
	TrendRSILow  float64 `json:"trendRsiLow" yaml:"trendRsiLow" validate:"gte=0,lte=100"`
	TrendRSIHigh float64 `json:"trendRsiHigh" yaml:"trendRsiHigh" validate:"gte=0,lte=100,gtfield=TrendRSILow"`

	PercentileLookback int     `json:"percentileLookback" yaml:"percentileLookback" validate:"gt=0"`
	LowPercentile      float64 `json:"lowPercentile" yaml:"lowPercentile" validate:"gte=0,lte=100"`
	HighPercentile     float64 `json:"highPercentile" yaml:"highPercentile" validate:"gte=0,lte=100,gtfield=LowPercentile"`

	Leverage float64 `json:"leverage" yaml:"leverage" validate:"gt=0"`
}

// DefaultAdaptiveParams returns RSI/ADX/ATR 14, EMA 50, ADX 25/20, ATR multiples
// 1.5/3 in trend and 1/2 in range, and 10/90 percentile bands over 480 bars at 7x
func DefaultAdaptiveParams() AdaptiveParams {
	return AdaptiveParams{
		RSIPeriod:          14,
		ADXPeriod:          14,
		EMAPeriod:          50,
		ATRPeriod:          14,
		ADXTrendThreshold:  25,
		ADXRangeThreshold:  20,
		TrendStopATRMult:   1.5,
		TrendTPATRMult:     3,
		RangeStopATRMult:   1,
		RangeTPATRMult:     2,
		TrendRSILow:        35,
		TrendRSIHigh:       65,
		PercentileLookback: 480,
		LowPercentile:      10,
		HighPercentile:     90,
		Leverage:           7,
	}
}

// AdaptiveRegime trades percentile RSI extremes in ranging markets and
// EMA-side continuation in trending ones, each with ATR-scaled stop and target
type AdaptiveRegime struct {
	params AdaptiveParams
	sizer  risk.Sizer
}

// NewAdaptiveRegime creates the variant
func NewAdaptiveRegime(p AdaptiveParams) *AdaptiveRegime {
	return &AdaptiveRegime{params: p, sizer: risk.NewFixedLeverageSizer(p.Leverage)}
}

func (s *AdaptiveRegime) Name() string { return VariantAdaptiveRegime }

func (s *AdaptiveRegime) Params() interface{} { return s.params }

func (s *AdaptiveRegime) Trigger() Trigger { return TriggerWick }

func (s *AdaptiveRegime) Sizer() risk.Sizer { return s.sizer }

func (s *AdaptiveRegime) StopRules() StopRules { return StopRules{} }

func (s *AdaptiveRegime) Requirements() Requirements {
	return Requirements{
		Series: []Requirement{
			{Spec: indicators.Spec{Role: RoleRSI, Kind: indicators.KindRSI, Period: s.params.RSIPeriod}, Window: s.params.PercentileLookback},
			{Spec: indicators.Spec{Role: RoleADX, Kind: indicators.KindADX, Period: s.params.ADXPeriod}},
			{Spec: indicators.Spec{Role: RoleEMA, Kind: indicators.KindEMA, Period: s.params.EMAPeriod}},
			{Spec: indicators.Spec{Role: RoleATR, Kind: indicators.KindATR, Period: s.params.ATRPeriod}},
		},
	}
}

// Bands returns the dynamic RSI band over the lookback window preceding the tick
func (s *AdaptiveRegime) Bands(t Tick) (low, high float64, ok bool) {
	window, ok := t.Window(RoleRSI, s.params.PercentileLookback)
	if !ok {
		return 0, 0, false
	}
	return indicators.Percentile(window, s.params.LowPercentile), indicators.Percentile(window, s.params.HighPercentile), true
}

func (s *AdaptiveRegime) Entry(t Tick) (EntrySignal, bool) {
	rsi := t.mustValue(RoleRSI)
	adx := t.mustValue(RoleADX)
	atr := t.mustValue(RoleATR)
	price := t.Candle.Close

	var (
		side             types.Side
		regime           types.Regime
		stopMult, tpMult float64
		reason           string
	)

	switch {
	case adx < s.params.ADXRangeThreshold:
		low, high, ok := s.Bands(t)
		if !ok {
			return EntrySignal{}, false
		}
		switch {
		case rsi < low:
			side = types.SideLong
		case rsi > high:
			side = types.SideShort
		}
		regime, stopMult, tpMult, reason = types.RegimeRange, s.params.RangeStopATRMult, s.params.RangeTPATRMult, "rsi band"

	case adx > s.params.ADXTrendThreshold:
		ema := t.mustValue(RoleEMA)
		if rsi > s.params.TrendRSILow && rsi < s.params.TrendRSIHigh {
			switch {
			case price > ema:
				side = types.SideLong
			case price < ema:
				side = types.SideShort
			}
		}
		regime, stopMult, tpMult, reason = types.RegimeTrend, s.params.TrendStopATRMult, s.params.TrendTPATRMult, "ema trend"
	}

	if side == "" || side == types.SideFlat {
		return EntrySignal{}, false
	}
	return EntrySignal{
		Side:       side,
		Stop:       types.OffsetAdverse(side, price, atr*stopMult),
		TakeProfit: types.OffsetFavorable(side, price, atr*tpMult),
		Regime:     regime,
		Reason:     reason,
	}, true
}

// ShouldExit is always false; positions close on stop or target only
func (s *AdaptiveRegime) ShouldExit(Tick, types.Side) bool {
	return false
}
