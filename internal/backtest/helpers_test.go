package backtest

import (
	"math"
	"time"

	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/risk"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

var testBase = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// candlesFromCloses builds 1m candles with the wick spread around each close
func candlesFromCloses(spread float64, closes ...float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		open := testBase.Add(time.Duration(i) * time.Minute)
		out[i] = types.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute - time.Millisecond),
			Open:      c,
			High:      c + spread,
			Low:       c - spread,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

// risingCandles returns n candles closing at start, start+1, ...
func risingCandles(n int, start float64) []types.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)
	}
	return candlesFromCloses(0.2, closes...)
}

// waveCandles is a deterministic oscillating series with drift, long enough for every variant
func waveCandles(n int) []types.Candle {
	closes := make([]float64, n)
	for i := range closes {
		x := float64(i)
		closes[i] = 1000 + 40*math.Sin(x/9) + 15*math.Sin(x/2.3) + 0.15*x
	}
	out := candlesFromCloses(0, closes...)
	for i := range out {
		wick := 3 + 2*math.Abs(math.Sin(float64(i)/3))
		out[i].High = out[i].Close + wick
		out[i].Low = out[i].Close - wick
		if i > 0 {
			out[i].Open = out[i-1].Close
			out[i].High = math.Max(out[i].High, out[i].Open)
			out[i].Low = math.Min(out[i].Low, out[i].Open)
		}
	}
	return out
}

// seriesTail keeps the values from candle index offset on, the way a warm-up shortens a series
func seriesTail(kind indicators.Kind, period, offset int, full []float64) indicators.Series {
	values := make([]float64, len(full)-offset)
	copy(values, full[offset:])
	return indicators.Series{Kind: kind, Period: period, Values: values}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// scriptPolicy replays entries and exits keyed by candle index
type scriptPolicy struct {
	reqs    strategy.Requirements
	trigger strategy.Trigger
	rules   strategy.StopRules
	sizer   risk.Sizer
	entries map[int]strategy.EntrySignal
	exits   map[int]bool
	// entryFn overrides entries when set
	entryFn func(t strategy.Tick) (strategy.EntrySignal, bool)
}

func newScriptPolicy() *scriptPolicy {
	return &scriptPolicy{
		sizer:   risk.NewFixedLeverageSizer(1),
		entries: make(map[int]strategy.EntrySignal),
		exits:   make(map[int]bool),
	}
}

func (p *scriptPolicy) Name() string { return "script" }
func (p *scriptPolicy) Requirements() strategy.Requirements { return p.reqs }
func (p *scriptPolicy) Trigger() strategy.Trigger { return p.trigger }
func (p *scriptPolicy) StopRules() strategy.StopRules { return p.rules }
func (p *scriptPolicy) Sizer() risk.Sizer { return p.sizer }
func (p *scriptPolicy) Params() interface{} { return nil }
func (p *scriptPolicy) ShouldExit(t strategy.Tick, _ types.Side) bool { return p.exits[t.Index] }

func (p *scriptPolicy) Entry(t strategy.Tick) (strategy.EntrySignal, bool) {
	if p.entryFn != nil {
		return p.entryFn(t)
	}
	sig, ok := p.entries[t.Index]
	return sig, ok
}

// noIndicators resolves nothing; policies without requirements never read it
type noIndicators struct{}

func (noIndicators) Value(string, int) (float64, bool) { return 0, false }

// runScript steps a machine over every candle and returns it
func runScript(p *scriptPolicy, candles []types.Candle, balance float64, ind strategy.Indicators) *Machine {
	if ind == nil {
		ind = noIndicators{}
	}
	m := NewMachine(p, balance)
	for i := range candles {
		m.Step(strategy.Tick{Index: i, Candle: candles[i], Candles: candles, Ind: ind})
	}
	return m
}
