package strategy

import (
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Indicator roles of the RSI/ADX variants
const (
	RoleRSI = "rsi"
	RoleADX = "adx"
	RoleEMA = "ema"
)

// MeanReversionParams configures the RSI/ADX mean reversion with fixed stop and target
type MeanReversionParams struct {
	RSIPeriod     int     `json:"rsiPeriod" yaml:"rsiPeriod" validate:"required,gt=0"`
	ADXPeriod     int     `json:"adxPeriod" yaml:"adxPeriod" validate:"required,gt=0"`
	RSIBuy        float64 `json:"rsiBuy" yaml:"rsiBuy" validate:"gte=0,lte=100"`
	RSISell       float64 `json:"rsiSell" yaml:"rsiSell" validate:"gte=0,lte=100,gtfield=RSIBuy"`
	ADXThreshold  float64 `json:"adxThreshold" yaml:"adxThreshold" validate:"gt=0,lte=100"`
	StopPct       float64 `json:"stopPct" yaml:"stopPct" validate:"gt=0,lt=100"`
	TakeProfitPct float64 `json:"takeProfitPct" yaml:"takeProfitPct" validate:"gt=0"`
	Leverage      float64 `json:"leverage" yaml:"leverage" validate:"gt=0"`
}

// DefaultMeanReversionParams returns RSI 14 (25/75), ADX 14 below 20, stop 1% and target 3%
func DefaultMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{
		RSIPeriod:     14,
		ADXPeriod:     14,
		RSIBuy:        25,
		RSISell:       75,
		ADXThreshold:  20,
		StopPct:       1,
		TakeProfitPct: 3,
		Leverage:      1,
	}
}

// MeanReversionTP buys oversold and sells overbought RSI while ADX shows no trend
type MeanReversionTP struct {
	params MeanReversionParams
	sizer  risk.Sizer
}

// NewMeanReversionTP creates the variant
func NewMeanReversionTP(p MeanReversionParams) *MeanReversionTP {
	return &MeanReversionTP{params: p, sizer: risk.NewFixedLeverageSizer(p.Leverage)}
}

func (s *MeanReversionTP) Name() string { return VariantMeanReversionTP }

func (s *MeanReversionTP) Params() interface{} { return s.params }

func (s *MeanReversionTP) Trigger() Trigger { return TriggerWick }

func (s *MeanReversionTP) Sizer() risk.Sizer { return s.sizer }

func (s *MeanReversionTP) StopRules() StopRules { return StopRules{} }

func (s *MeanReversionTP) Requirements() Requirements {
	return Requirements{
		Series: []Requirement{
			{Spec: indicators.Spec{Role: RoleRSI, Kind: indicators.KindRSI, Period: s.params.RSIPeriod}},
			{Spec: indicators.Spec{Role: RoleADX, Kind: indicators.KindADX, Period: s.params.ADXPeriod}},
		},
	}
}

// signal returns the side the oscillators currently point to
func (s *MeanReversionTP) signal(t Tick) types.Side {
	rsi, adx := t.mustValue(RoleRSI), t.mustValue(RoleADX)
	if adx >= s.params.ADXThreshold {
		return types.SideFlat
	}
	switch {
	case rsi < s.params.RSIBuy:
		return types.SideLong
	case rsi > s.params.RSISell:
		return types.SideShort
	default:
		return types.SideFlat
	}
}

func (s *MeanReversionTP) Entry(t Tick) (EntrySignal, bool) {
	side := s.signal(t)
	if side == types.SideFlat {
		return EntrySignal{}, false
	}
	price := t.Candle.Close
	return EntrySignal{
		Side:       side,
		Stop:       types.ShiftAdverse(side, price, s.params.StopPct),
		TakeProfit: types.ShiftFavorable(side, price, s.params.TakeProfitPct),
		Regime:     types.RegimeRange,
		Reason:     "rsi extreme",
	}, true
}

// ShouldExit closes on the opposite entry signal; the machine re-enters on the same tick
func (s *MeanReversionTP) ShouldExit(t Tick, side types.Side) bool {
	return s.signal(t) == side.Opposite()
}
