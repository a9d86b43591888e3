package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

type mapIndicators map[string][]float64

func (f mapIndicators) Value(role string, i int) (float64, bool) {
	values, ok := f[role]
	if !ok || i < 0 || i >= len(values) || math.IsNaN(values[i]) {
		return 0, false
	}
	return values[i], true
}

func TestMachine_StopLossLong(t *testing.T) {
	p := newScriptPolicy()
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 95, Regime: types.RegimeTrend}
	candles := candlesFromCloses(0, 100, 100, 99, 94, 96)

	m := runScript(p, candles, 1000, nil)

	trades := m.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, types.SideLong, tr.Side)
	assert.Equal(t, types.ExitStopLoss, tr.ExitReason)
	assert.Equal(t, types.ResultLoss, tr.Result)
	assert.Equal(t, 1, tr.EntryIndex)
	assert.Equal(t, 3, tr.ExitIndex)
	assert.Equal(t, 95.0, tr.ExitPrice, "exit at the stop level, not the close")
	assert.InDelta(t, (95.0-100.0)/100.0*100, tr.ProfitPct, 1e-9)
	assert.InDelta(t, -50, tr.PnL, 1e-9)
	assert.InDelta(t, -5, tr.ReturnPct, 1e-9)
	assert.InDelta(t, 950, tr.BalanceAfter, 1e-9)
	assert.Equal(t, candles[3].CloseTime, tr.ExitTime)
	assert.Equal(t, candles[1].CloseTime, tr.EntryTime)
	assert.Equal(t, types.RegimeTrend, tr.Regime)

	assert.False(t, m.Position().IsOpen())
	assert.InDelta(t, 950, m.Balance(), 1e-9)
}

func TestMachine_StopLossShort(t *testing.T) {
	p := newScriptPolicy()
	p.entries[1] = strategy.EntrySignal{Side: types.SideShort, Stop: 105}
	candles := candlesFromCloses(0, 100, 100, 101, 106)

	m := runScript(p, candles, 1000, nil)

	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, types.ExitStopLoss, trades[0].ExitReason)
	assert.Equal(t, 105.0, trades[0].ExitPrice)
	assert.InDelta(t, -(105.0-100.0)/100.0*100, trades[0].ProfitPct, 1e-9)
	assert.Equal(t, types.ResultLoss, trades[0].Result)
}

func TestMachine_TakeProfitOnWick(t *testing.T) {
	p := newScriptPolicy()
	p.trigger = strategy.TriggerWick
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 95, TakeProfit: 103}
	candles := candlesFromCloses(2, 100, 100, 101, 102)

	m := runScript(p, candles, 1000, nil)

	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, types.ExitTakeProfit, trades[0].ExitReason)
	assert.Equal(t, 2, trades[0].ExitIndex)
	assert.Equal(t, 103.0, trades[0].ExitPrice)
	assert.InDelta(t, 3, trades[0].ProfitPct, 1e-9)
	assert.Equal(t, types.ResultWin, trades[0].Result)
}

func TestMachine_StopCheckedBeforeTakeProfit(t *testing.T) {
	p := newScriptPolicy()
	p.trigger = strategy.TriggerWick
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 95, TakeProfit: 103}
	candles := candlesFromCloses(6, 100, 100, 100)

	m := runScript(p, candles, 1000, nil)

	trades := m.Trades()
	require.Len(t, trades, 1, "one exit per tick")
	assert.Equal(t, types.ExitStopLoss, trades[0].ExitReason)
}

func TestMachine_SignalExitAndSameTickFlip(t *testing.T) {
	p := newScriptPolicy()
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 90}
	p.exits[3] = true
	p.entries[3] = strategy.EntrySignal{Side: types.SideShort, Stop: 110}
	candles := candlesFromCloses(0, 100, 100, 102, 104, 103)

	m := runScript(p, candles, 1000, nil)

	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, types.ExitSignalReversal, trades[0].ExitReason)
	assert.Equal(t, 104.0, trades[0].ExitPrice)
	assert.InDelta(t, 4, trades[0].ProfitPct, 1e-9)

	pos := m.Position()
	require.True(t, pos.IsOpen())
	assert.Equal(t, types.SideShort, pos.Side)
	assert.Equal(t, 3, pos.EntryIndex)
	assert.Equal(t, 104.0, pos.EntryPrice)
	assert.InDelta(t, 1040.0/104.0, pos.Quantity, 1e-9, "sized from the balance after the exit")
}

func TestMachine_BreakevenLadder(t *testing.T) {
	p := newScriptPolicy()
	p.rules = strategy.StopRules{Breakeven: []strategy.BreakevenStep{
		{TriggerPct: 1, LockPct: 0},
		{TriggerPct: 2, LockPct: 1},
	}}
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 95}
	candles := candlesFromCloses(0, 100, 100, 101.5, 102.5, 101.2, 100.9)

	m := NewMachine(p, 1000)
	wantStops := []float64{0, 95, 100, 101, 101}
	for i := 0; i < 5; i++ {
		m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: noIndicators{}})
		if i >= 1 {
			assert.InDelta(t, wantStops[i], m.Position().Stop, 1e-9, "tick %d", i)
		}
	}
	assert.True(t, m.Position().BreakevenActive)
	assert.False(t, m.Position().TrailingActive)

	m.Step(strategy.Tick{Index: 5, Candle: candles[5], Candles: candles, Ind: noIndicators{}})
	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, types.ExitStopLoss, trades[0].ExitReason)
	assert.InDelta(t, 101, trades[0].ExitPrice, 1e-9)
	assert.Equal(t, types.ResultWin, trades[0].Result)
}

func TestMachine_TrailingLong(t *testing.T) {
	p := newScriptPolicy()
	p.rules = strategy.StopRules{
		Breakeven: []strategy.BreakevenStep{{TriggerPct: 1.5, LockPct: 0}},
		Trailing:  &strategy.TrailingRule{StartPct: 2, GapPct: 1},
	}
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 90}
	candles := candlesFromCloses(0, 100, 100, 101.6, 103, 105, 104.5, 103.9)

	m := NewMachine(p, 1000)
	wantStops := map[int]float64{1: 90, 2: 100, 3: 101.97, 4: 103.95, 5: 103.95}
	for i := 0; i < 6; i++ {
		m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: noIndicators{}})
		if want, ok := wantStops[i]; ok {
			assert.InDelta(t, want, m.Position().Stop, 1e-9, "tick %d", i)
		}
		pos := m.Position()
		assert.False(t, pos.BreakevenActive && pos.TrailingActive, "tick %d", i)
		if i == 2 {
			assert.True(t, pos.BreakevenActive)
			assert.False(t, pos.TrailingActive)
		}
	}
	assert.True(t, m.Position().TrailingActive)
	assert.False(t, m.Position().BreakevenActive)

	m.Step(strategy.Tick{Index: 6, Candle: candles[6], Candles: candles, Ind: noIndicators{}})
	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, types.ExitStopLoss, trades[0].ExitReason)
	assert.InDelta(t, 103.95, trades[0].ExitPrice, 1e-9)
	assert.InDelta(t, 3.95, trades[0].ProfitPct, 1e-9)
}

func TestMachine_TrailingShortMirrorsLong(t *testing.T) {
	p := newScriptPolicy()
	p.rules = strategy.StopRules{
		Breakeven: []strategy.BreakevenStep{{TriggerPct: 1.5, LockPct: 0}},
		Trailing:  &strategy.TrailingRule{StartPct: 2, GapPct: 1},
	}
	p.entries[1] = strategy.EntrySignal{Side: types.SideShort, Stop: 110}
	candles := candlesFromCloses(0, 100, 100, 98.4, 97, 95, 95.5, 96.1)

	m := NewMachine(p, 1000)
	wantStops := map[int]float64{1: 110, 2: 100, 3: 97.97, 4: 95.95, 5: 95.95}
	for i := 0; i < 6; i++ {
		m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: noIndicators{}})
		if want, ok := wantStops[i]; ok {
			assert.InDelta(t, want, m.Position().Stop, 1e-9, "tick %d", i)
		}
	}

	m.Step(strategy.Tick{Index: 6, Candle: candles[6], Candles: candles, Ind: noIndicators{}})
	trades := m.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 95.95, trades[0].ExitPrice, 1e-9)
	assert.InDelta(t, 4.05, trades[0].ProfitPct, 1e-9)
	assert.Equal(t, types.ResultWin, trades[0].Result)
}

func TestMachine_RejectedEntriesLeaveMachineFlat(t *testing.T) {
	tests := []struct {
		name    string
		sizer   risk.Sizer
		signal  strategy.EntrySignal
		wantErr error
		check   func(t *testing.T, r Rejections)
	}{
		{
			name:    "stop above long entry",
			signal:  strategy.EntrySignal{Side: types.SideLong, Stop: 101},
			wantErr: errors.ErrInvalidStop,
			check:   func(t *testing.T, r Rejections) { assert.Equal(t, 1, r.InvalidStop) },
		},
		{
			name:    "stop at entry",
			signal:  strategy.EntrySignal{Side: types.SideShort, Stop: 100},
			wantErr: errors.ErrInvalidStop,
			check:   func(t *testing.T, r Rejections) { assert.Equal(t, 1, r.InvalidStop) },
		},
		{
			name:    "target on the losing side",
			signal:  strategy.EntrySignal{Side: types.SideLong, Stop: 95, TakeProfit: 99},
			wantErr: errors.ErrInvalidStop,
			check:   func(t *testing.T, r Rejections) { assert.Equal(t, 1, r.InvalidStop) },
		},
		{
			name:    "margin over balance at capped leverage",
			sizer:   &risk.RiskSizer{RiskPct: 2, Leverage: 1, MaxLeverage: 1},
			signal:  strategy.EntrySignal{Side: types.SideLong, Stop: 99.9},
			wantErr: errors.ErrMarginExceeded,
			check:   func(t *testing.T, r Rejections) { assert.Equal(t, 1, r.MarginExceeded) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newScriptPolicy()
			if tt.sizer != nil {
				p.sizer = tt.sizer
			}
			p.entries[0] = tt.signal
			p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 99}
			candles := candlesFromCloses(0, 100, 100, 100)

			m := NewMachine(p, 1000)
			ev := m.Step(strategy.Tick{Index: 0, Candle: candles[0], Candles: candles, Ind: noIndicators{}})
			require.Error(t, ev.Rejected)
			assert.True(t, errors.Is(ev.Rejected, tt.wantErr))
			assert.False(t, ev.Entered)
			assert.False(t, m.Position().IsOpen())
			tt.check(t, m.Rejections())

			// the run continues
			if _, capped := tt.sizer.(*risk.RiskSizer); capped {
				return
			}
			ev = m.Step(strategy.Tick{Index: 1, Candle: candles[1], Candles: candles, Ind: noIndicators{}})
			assert.True(t, ev.Entered)
			assert.True(t, m.Position().IsOpen())
		})
	}
}

func TestMachine_UndefinedIndicatorSkipsWholeTick(t *testing.T) {
	p := newScriptPolicy()
	p.reqs = strategy.Requirements{Series: []strategy.Requirement{
		{Spec: indicators.Spec{Role: "x", Kind: indicators.KindEMA, Period: 3}},
	}}
	p.entries[1] = strategy.EntrySignal{Side: types.SideLong, Stop: 95}
	p.entries[3] = strategy.EntrySignal{Side: types.SideShort, Stop: 120}
	ind := mapIndicators{"x": {1, 1, 1, math.NaN(), 0}}
	candles := candlesFromCloses(0, 100, 100, 100, 90, 96)

	m := NewMachine(p, 1000)
	for i := range candles {
		ev := m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: ind})
		if i == 3 {
			assert.True(t, ev.Skipped)
		}
	}

	assert.Empty(t, m.Trades(), "close below the stop on a skipped tick does not exit")
	assert.True(t, m.Position().IsOpen())
	assert.Equal(t, 1, m.Rejections().SkippedUndefined)
}

func TestMachine_SinglePositionAndMonotonicStop(t *testing.T) {
	candles := waveCandles(600)

	p := newScriptPolicy()
	p.trigger = strategy.TriggerWick
	p.sizer = risk.NewRiskSizer(2, 5)
	p.rules = strategy.StopRules{
		Breakeven: []strategy.BreakevenStep{{TriggerPct: 0.5, LockPct: 0}, {TriggerPct: 1, LockPct: 0.5}},
		Trailing:  &strategy.TrailingRule{StartPct: 1.5, GapPct: 0.7},
	}
	p.entryFn = func(tk strategy.Tick) (strategy.EntrySignal, bool) {
		side := types.SideLong
		if tk.Index%2 == 1 {
			side = types.SideShort
		}
		return strategy.EntrySignal{
			Side: side,
			Stop: types.ShiftAdverse(side, tk.Candle.Close, 1.2),
		}, true
	}

	entries := 0
	m := NewMachine(p, 1000, OnEntry(func(Position) { entries++ }))

	var prev Position
	for i := range candles {
		m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: noIndicators{}})
		pos := m.Position()

		if prev.IsOpen() && pos.IsOpen() && pos.EntryIndex == prev.EntryIndex {
			if pos.Side == types.SideLong {
				assert.GreaterOrEqual(t, pos.Stop, prev.Stop, "long stop loosened at %d", i)
			} else {
				assert.LessOrEqual(t, pos.Stop, prev.Stop, "short stop loosened at %d", i)
			}
		}
		prev = pos
	}

	trades := m.Trades()
	require.NotEmpty(t, trades)

	open := 0
	if m.Position().IsOpen() {
		open = 1
	}
	assert.Equal(t, entries, len(trades)+open, "every entry closes exactly once")

	balance := 1000.0
	for k, tr := range trades {
		assert.Greater(t, tr.ExitIndex, tr.EntryIndex)
		assert.True(t, tr.ExitTime.After(tr.EntryTime))
		if k > 0 {
			assert.GreaterOrEqual(t, tr.EntryIndex, trades[k-1].ExitIndex, "positions never overlap")
		}
		assert.InDelta(t, balance+tr.PnL, tr.BalanceAfter, 1e-6)
		balance = tr.BalanceAfter
	}
	assert.InDelta(t, balance, m.Balance(), 1e-6)
}
