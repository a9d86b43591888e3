package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// fakeIndicators maps role -> value per candle index; missing or NaN is undefined
type fakeIndicators map[string][]float64

func (f fakeIndicators) Value(role string, i int) (float64, bool) {
	values, ok := f[role]
	if !ok || i < 0 || i >= len(values) || math.IsNaN(values[i]) {
		return 0, false
	}
	return values[i], true
}

func candlesAt(closes ...float64) []types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		open := base.Add(time.Duration(i) * time.Minute)
		out[i] = types.Candle{OpenTime: open, CloseTime: open.Add(time.Minute - time.Millisecond),
			Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func tickAt(candles []types.Candle, ind fakeIndicators, i int) Tick {
	return Tick{Index: i, Candle: candles[i], Candles: candles, Ind: ind}
}

func TestFixedCrossover_Entry(t *testing.T) {
	s := NewFixedCrossover(DefaultCrossoverParams())
	candles := candlesAt(100, 100, 100)
	ind := fakeIndicators{
		RoleFast: {99, 99.5, 101},
		RoleSlow: {100, 100, 100},
		RoleATR:  {1, 1, 1},
	}

	_, ok := s.Entry(tickAt(candles, ind, 1))
	assert.False(t, ok, "no cross yet")

	sig, ok := s.Entry(tickAt(candles, ind, 2))
	require.True(t, ok)
	assert.Equal(t, types.SideLong, sig.Side)
	assert.InDelta(t, 98.5, sig.Stop, 1e-9)
	assert.Equal(t, types.RegimeTrend, sig.Regime) // 1 > 100*0.005
	assert.Zero(t, sig.TakeProfit)
}

func TestFixedCrossover_ShortAndExit(t *testing.T) {
	s := NewFixedCrossover(DefaultCrossoverParams())
	candles := candlesAt(100, 100)
	ind := fakeIndicators{
		RoleFast: {101, 99},
		RoleSlow: {100, 100},
		RoleATR:  {0.2, 0.2},
	}

	sig, ok := s.Entry(tickAt(candles, ind, 1))
	require.True(t, ok)
	assert.Equal(t, types.SideShort, sig.Side)
	assert.InDelta(t, 100.3, sig.Stop, 1e-9)
	assert.Equal(t, types.RegimeRange, sig.Regime)

	assert.True(t, s.ShouldExit(tickAt(candles, ind, 1), types.SideLong))
	assert.False(t, s.ShouldExit(tickAt(candles, ind, 1), types.SideShort))
}

func TestRiskSizedTrailing_NoiseFilter(t *testing.T) {
	s := NewRiskSizedTrailing(DefaultTrailingParams())

	// min of the five closes before the signal is 100; 100.5 is only 0.5% above
	candles := candlesAt(100, 100.2, 100.1, 100.3, 100.2, 100.5)
	ind := fakeIndicators{
		RoleFast: {0, 0, 0, 0, 99, 101},
		RoleSlow: {0, 0, 0, 0, 100, 100},
		RoleATR:  {1, 1, 1, 1, 1, 1},
	}
	_, ok := s.Entry(tickAt(candles, ind, 5))
	assert.False(t, ok)

	candles[5].Close = 101
	sig, ok := s.Entry(tickAt(candles, ind, 5))
	require.True(t, ok)
	assert.Equal(t, types.SideLong, sig.Side)
	assert.InDelta(t, 98.0, sig.Stop, 1e-9)
}

func TestNoiseDisplacementPct(t *testing.T) {
	closes := []float64{100, 102, 98, 101}
	assert.InDelta(t, (99.0-98.0)/98.0*100, NoiseDisplacementPct(types.SideLong, 99, closes), 1e-9)
	assert.InDelta(t, (102.0-99.0)/102.0*100, NoiseDisplacementPct(types.SideShort, 99, closes), 1e-9)
	assert.Zero(t, NoiseDisplacementPct(types.SideLong, 99, nil))
}

func TestMeanReversion_Signals(t *testing.T) {
	s := NewMeanReversionTP(DefaultMeanReversionParams())
	candles := candlesAt(100, 100, 100, 100)
	ind := fakeIndicators{
		RoleRSI: {20, 80, 20, 50},
		RoleADX: {15, 15, 30, 15},
	}

	sig, ok := s.Entry(tickAt(candles, ind, 0))
	require.True(t, ok)
	assert.Equal(t, types.SideLong, sig.Side)
	assert.InDelta(t, 99.0, sig.Stop, 1e-9)
	assert.InDelta(t, 103.0, sig.TakeProfit, 1e-9)
	assert.Equal(t, types.RegimeRange, sig.Regime)

	sig, ok = s.Entry(tickAt(candles, ind, 1))
	require.True(t, ok)
	assert.Equal(t, types.SideShort, sig.Side)
	assert.True(t, s.ShouldExit(tickAt(candles, ind, 1), types.SideLong))

	_, ok = s.Entry(tickAt(candles, ind, 2))
	assert.False(t, ok, "adx above threshold")
	_, ok = s.Entry(tickAt(candles, ind, 3))
	assert.False(t, ok, "rsi neutral")
}

func TestAdaptive_RangeBands(t *testing.T) {
	p := DefaultAdaptiveParams()
	p.PercentileLookback = 10
	s := NewAdaptiveRegime(p)

	closes := make([]float64, 12)
	rsi := make([]float64, 12)
	adx := make([]float64, 12)
	ema := make([]float64, 12)
	atr := make([]float64, 12)
	for i := range closes {
		closes[i] = 100
		rsi[i] = float64(10 * (i + 1)) // window before index 10 holds 10..100
		adx[i] = 15
		ema[i] = 100
		atr[i] = 2
	}
	candles := candlesAt(closes...)
	ind := fakeIndicators{RoleRSI: rsi, RoleADX: adx, RoleEMA: ema, RoleATR: atr}

	low, high, ok := s.Bands(tickAt(candles, ind, 10))
	require.True(t, ok)
	assert.Equal(t, 20.0, low)
	assert.Equal(t, 100.0, high)

	rsi[10] = 15
	sig, ok := s.Entry(tickAt(candles, ind, 10))
	require.True(t, ok)
	assert.Equal(t, types.SideLong, sig.Side)
	assert.Equal(t, types.RegimeRange, sig.Regime)
	assert.InDelta(t, 98.0, sig.Stop, 1e-9)
	assert.InDelta(t, 104.0, sig.TakeProfit, 1e-9)

	rsi[10] = 50
	_, ok = s.Entry(tickAt(candles, ind, 10))
	assert.False(t, ok)
}

func TestAdaptive_TrendBandUsesBothBounds(t *testing.T) {
	p := DefaultAdaptiveParams()
	p.PercentileLookback = 1
	s := NewAdaptiveRegime(p)

	candles := candlesAt(100, 105)
	ind := fakeIndicators{
		RoleRSI: {50, 50},
		RoleADX: {30, 30},
		RoleEMA: {100, 100},
		RoleATR: {2, 2},
	}

	sig, ok := s.Entry(tickAt(candles, ind, 1))
	require.True(t, ok)
	assert.Equal(t, types.SideLong, sig.Side)
	assert.Equal(t, types.RegimeTrend, sig.Regime)
	assert.InDelta(t, 102.0, sig.Stop, 1e-9)
	assert.InDelta(t, 111.0, sig.TakeProfit, 1e-9)

	ind[RoleRSI][1] = 70
	_, ok = s.Entry(tickAt(candles, ind, 1))
	assert.False(t, ok, "rsi above upper trend bound")

	ind[RoleRSI][1] = 30
	_, ok = s.Entry(tickAt(candles, ind, 1))
	assert.False(t, ok, "rsi below lower trend bound")

	// between thresholds: neither regime
	ind[RoleRSI][1] = 50
	ind[RoleADX][1] = 22
	_, ok = s.Entry(tickAt(candles, ind, 1))
	assert.False(t, ok)
	assert.False(t, s.ShouldExit(tickAt(candles, ind, 1), types.SideLong))
}

func TestTick_Ready(t *testing.T) {
	s := NewFixedCrossover(DefaultCrossoverParams())
	candles := candlesAt(100, 100, 100)
	ind := fakeIndicators{
		RoleFast: {math.NaN(), 1, 1},
		RoleSlow: {1, 1, 1},
		RoleATR:  {1, 1, 0},
	}

	assert.False(t, tickAt(candles, ind, 0).Ready(s.Requirements()))
	assert.False(t, tickAt(candles, ind, 1).Ready(s.Requirements()), "previous fast undefined")
	assert.True(t, tickAt(candles, ind, 2).Ready(s.Requirements()), "zero is a defined value")
}

func TestRequirements_Guard(t *testing.T) {
	assert.Equal(t, 1, NewFixedCrossover(DefaultCrossoverParams()).Requirements().Guard())
	assert.Equal(t, 5, NewRiskSizedTrailing(DefaultTrailingParams()).Requirements().Guard())
	assert.Equal(t, 0, NewMeanReversionTP(DefaultMeanReversionParams()).Requirements().Guard())
	assert.Equal(t, 480, NewAdaptiveRegime(DefaultAdaptiveParams()).Requirements().Guard())
}

func TestTrigger_Prices(t *testing.T) {
	c := types.Candle{Open: 100, High: 105, Low: 95, Close: 101}

	assert.Equal(t, 101.0, TriggerClose.AdversePrice(c, types.SideLong))
	assert.Equal(t, 95.0, TriggerWick.AdversePrice(c, types.SideLong))
	assert.Equal(t, 105.0, TriggerWick.AdversePrice(c, types.SideShort))
	assert.Equal(t, 105.0, TriggerWick.FavorablePrice(c, types.SideLong))
	assert.Equal(t, 95.0, TriggerWick.FavorablePrice(c, types.SideShort))
}

func TestNew(t *testing.T) {
	for _, name := range Variants() {
		p, err := New(Config{Variant: name})
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.NotNil(t, p.Sizer())
		assert.NotEmpty(t, p.Requirements().Series)
	}

	_, err := New(Config{Variant: "martingale"})
	assert.Error(t, err)

	custom := DefaultCrossoverParams()
	custom.FastPeriod = 9
	p, err := New(Config{Variant: VariantFixedCrossover, Crossover: &custom})
	require.NoError(t, err)
	assert.Equal(t, 9, p.Params().(CrossoverParams).FastPeriod)
}
