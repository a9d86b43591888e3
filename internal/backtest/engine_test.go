package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// crossoverSet builds fast/slow/atr series for candles closing at 100+i. fast
// sits one below slow, one above it from crossAt and one below again from
// reverseAt (when > 0). The series carry warm-up offsets of 6, 24 and 14.
func crossoverSet(n, crossAt, reverseAt int) indicators.Set {
	fast := make([]float64, n)
	slow := make([]float64, n)
	for i := range slow {
		slow[i] = 100 + float64(i)
		switch {
		case reverseAt > 0 && i >= reverseAt:
			fast[i] = slow[i] - 1
		case i >= crossAt:
			fast[i] = slow[i] + 1
		default:
			fast[i] = slow[i] - 1
		}
	}
	return indicators.Set{
		strategy.RoleFast: seriesTail(indicators.KindEMA, 7, 6, fast),
		strategy.RoleSlow: seriesTail(indicators.KindEMA, 25, 24, slow),
		strategy.RoleATR:  seriesTail(indicators.KindATR, 14, 14, constant(n, 0.5)),
	}
}

func TestNewBacktestEngine(t *testing.T) {
	policy := strategy.NewFixedCrossover(strategy.DefaultCrossoverParams())
	engine := NewBacktestEngine(1000, policy)

	assert.NotNil(t, engine)
	assert.Equal(t, 1000.0, engine.initialBalance)
	assert.Equal(t, policy, engine.policy)
	assert.NotNil(t, engine.logger)
}

func TestBacktestEngine_Run_EntersOnFirstCross(t *testing.T) {
	candles := risingCandles(36, 100)
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Run(candles, crossoverSet(36, 30, 0))
	require.NoError(t, err)

	assert.Equal(t, 25, result.Start, "largest offset 24 plus the previous-bar guard")
	assert.Empty(t, result.Trades)
	require.NotNil(t, result.Open)
	assert.Equal(t, types.SideLong, result.Open.Side)
	assert.Equal(t, 30, result.Open.EntryIndex)
	assert.Equal(t, 130.0, result.Open.EntryPrice)
	assert.InDelta(t, 131.3, result.Open.Stop, 1e-9, "second breakeven step reached at 2.3%")
}

func TestBacktestEngine_Run_SingleCrossYieldsOneLongTrade(t *testing.T) {
	candles := risingCandles(37, 100)
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Run(candles, crossoverSet(37, 30, 36))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	tr := result.Trades[0]
	assert.Equal(t, types.SideLong, tr.Side)
	assert.Equal(t, 30, tr.EntryIndex)
	assert.Equal(t, 36, tr.ExitIndex)
	assert.Equal(t, types.ExitSignalReversal, tr.ExitReason)
	assert.Equal(t, types.ResultWin, tr.Result)
	assert.InDelta(t, 6.0/130.0*100, tr.ProfitPct, 1e-9)
	assert.Equal(t, 7.0, tr.Leverage)
	assert.Equal(t, types.RegimeRange, tr.Regime, "atr 0.5 below 0.5% of price")

	// the reversal opens the opposite side on the same candle
	require.NotNil(t, result.Open)
	assert.Equal(t, types.SideShort, result.Open.Side)
	assert.Equal(t, 36, result.Open.EntryIndex)

	assert.Equal(t, 1, result.Summary.Total)
	assert.Equal(t, 100.0, result.Summary.WinRate)
	assert.Equal(t, 100.0, result.Summary.RegimeWinRate[types.RegimeRange])
	assert.True(t, math.IsNaN(result.Summary.RegimeWinRate[types.RegimeTrend]))
	assert.InDelta(t, tr.BalanceAfter, result.BalanceEnd, 1e-9)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, strategy.VariantFixedCrossover, result.Policy)
}

func TestBacktestEngine_Run_NoTrades(t *testing.T) {
	candles := risingCandles(40, 100)
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Run(candles, crossoverSet(40, 1000, 0))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Nil(t, result.Open)
	assert.Equal(t, 0, result.Summary.Total)
	assert.Equal(t, 0.0, result.Summary.WinRate)
	assert.Equal(t, 0.0, result.Summary.ProfitPct)
	assert.True(t, math.IsNaN(result.Summary.RegimeWinRate[types.RegimeTrend]))
	assert.True(t, math.IsNaN(result.Summary.RegimeWinRate[types.RegimeRange]))
	assert.Equal(t, 1000.0, result.BalanceEnd)
}

func TestBacktestEngine_Run_InsufficientData(t *testing.T) {
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Simulate(risingCandles(20, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataInsufficient))

	require.NotNil(t, result, "an empty result comes with the error")
	assert.Empty(t, result.Trades)
	assert.Equal(t, 1000.0, result.BalanceEnd)
	assert.Equal(t, 0.0, result.Summary.WinRate)
}

func TestBacktestEngine_Run_EmptyData(t *testing.T) {
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Simulate(nil)
	assert.True(t, errors.Is(err, errors.ErrDataInsufficient))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Summary.Total)
}

func TestBacktestEngine_Run_MalformedData(t *testing.T) {
	candles := risingCandles(40, 100)
	candles[10].OpenTime = candles[9].OpenTime

	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))
	result, err := engine.Run(candles, crossoverSet(40, 30, 0))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, errors.ErrMalformedData))

	var be *errors.BacktestError
	require.True(t, errors.As(err, &be))
	assert.True(t, be.IsFatal())
}

func TestBacktestEngine_Run_MissingCloseTime(t *testing.T) {
	candles := risingCandles(40, 100)
	for i := range candles {
		candles[i].CloseTime = time.Time{}
	}

	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))
	result, err := engine.Run(candles, crossoverSet(40, 30, 35))

	require.Error(t, err)
	assert.Nil(t, result, "trades would carry zero entry and exit times")
	assert.True(t, errors.Is(err, errors.ErrMalformedData))
	assert.ErrorContains(t, err, "missing close time")
}

func TestBacktestEngine_Run_TradeTimesFollowCandles(t *testing.T) {
	candles := risingCandles(40, 100)
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))

	result, err := engine.Run(candles, crossoverSet(40, 30, 35))
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	for _, tr := range result.Trades {
		assert.Equal(t, candles[tr.EntryIndex].CloseTime, tr.EntryTime)
		assert.Equal(t, candles[tr.ExitIndex].CloseTime, tr.ExitTime)
		assert.True(t, tr.ExitTime.After(tr.EntryTime))
	}
}

func TestBacktestEngine_Run_MissingRole(t *testing.T) {
	set := crossoverSet(40, 30, 0)
	delete(set, strategy.RoleATR)

	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()))
	_, err := engine.Run(risingCandles(40, 100), set)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIndicatorMisaligned))
}

func TestBacktestEngine_Hooks(t *testing.T) {
	var entries, exits int
	engine := NewBacktestEngine(1000, strategy.NewFixedCrossover(strategy.DefaultCrossoverParams()),
		WithEntryHook(func(Position) { entries++ }),
		WithTradeHook(func(Trade) { exits++ }),
		WithLogger(nil),
	)

	result, err := engine.Run(risingCandles(37, 100), crossoverSet(37, 30, 36))
	require.NoError(t, err)

	assert.Equal(t, 2, entries)
	assert.Equal(t, 1, exits)
	assert.Len(t, result.Trades, exits)
}

func TestBacktestEngine_Simulate_AllVariants(t *testing.T) {
	candles := waveCandles(900)

	for _, variant := range strategy.Variants() {
		t.Run(variant, func(t *testing.T) {
			cfg, err := strategy.DefaultConfig(variant)
			require.NoError(t, err)
			policy, err := strategy.New(cfg)
			require.NoError(t, err)

			result, err := NewBacktestEngine(1000, policy).Simulate(candles)
			require.NoError(t, err)

			assert.Equal(t, variant, result.Policy)
			assert.Equal(t, len(result.Trades), result.Summary.Total)
			assert.Equal(t, result.Summary.Total, result.Summary.Wins+result.Summary.Losses+result.Summary.Nulls)

			balance := result.BalanceStart
			for k, tr := range result.Trades {
				assert.GreaterOrEqual(t, tr.EntryIndex, result.Start)
				assert.Greater(t, tr.ExitIndex, tr.EntryIndex)
				if k > 0 {
					assert.GreaterOrEqual(t, tr.EntryIndex, result.Trades[k-1].ExitIndex)
				}
				assert.InDelta(t, balance+tr.PnL, tr.BalanceAfter, 1e-6)
				balance = tr.BalanceAfter
			}
			assert.InDelta(t, balance, result.BalanceEnd, 1e-6)
		})
	}
}
