package backtest

import (
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Rejections counts ticks that did not lead to a state change
type Rejections struct {
	InvalidStop      int `json:"invalidStop"`
	MarginExceeded   int `json:"marginExceeded"`
	SkippedUndefined int `json:"skippedUndefined"`
}

// StepEvent describes what one tick did
type StepEvent struct {
	Skipped   bool
	Exit      *Trade
	Entered   bool
	StopMoved bool
	Rejected  error
}

// Machine is the per-run position state machine. It is not safe for concurrent use.
type Machine struct {
	policy  strategy.Policy
	reqs    strategy.Requirements
	rules   strategy.StopRules
	trigger strategy.Trigger

	balance    float64
	position   Position
	trades     []Trade
	rejections Rejections

	logger  *zap.Logger
	onTrade func(Trade)
	onEntry func(Position)
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithMachineLogger sets the logger used for rejections and trades
func WithMachineLogger(l *zap.Logger) MachineOption {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// OnTrade registers a callback for every closed trade
func OnTrade(fn func(Trade)) MachineOption {
	return func(m *Machine) { m.onTrade = fn }
}

// OnEntry registers a callback for every opened position
func OnEntry(fn func(Position)) MachineOption {
	return func(m *Machine) { m.onEntry = fn }
}

// NewMachine creates a flat machine with the starting balance
func NewMachine(policy strategy.Policy, balance float64, opts ...MachineOption) *Machine {
	m := &Machine{
		policy:   policy,
		reqs:     policy.Requirements(),
		rules:    policy.StopRules(),
		trigger:  policy.Trigger(),
		balance:  balance,
		position: Position{Side: types.SideFlat},
		trades:   make([]Trade, 0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Step evaluates one candle: exits, then stop management, then entry.
// A tick with any required indicator value undefined changes nothing.
func (m *Machine) Step(t strategy.Tick) StepEvent {
	var ev StepEvent

	if !t.Ready(m.reqs) {
		m.rejections.SkippedUndefined++
		ev.Skipped = true
		return ev
	}

	if m.position.IsOpen() {
		if trade, ok := m.checkExit(t); ok {
			ev.Exit = &trade
		}
	}

	if m.position.IsOpen() {
		ev.StopMoved = m.manageStop(t.Candle.Close)
	}

	if !m.position.IsOpen() {
		entered, err := m.tryEnter(t)
		ev.Entered = entered
		ev.Rejected = err
	}

	return ev
}

// checkExit closes the position on stop, target or opposing signal, in that order
func (m *Machine) checkExit(t strategy.Tick) (Trade, bool) {
	p := &m.position
	c := t.Candle

	if types.WorseOrEqual(p.Side, m.trigger.AdversePrice(c, p.Side), p.Stop) {
		return m.exit(p.Stop, t, types.ExitStopLoss), true
	}
	if p.TakeProfit > 0 && types.BetterOrEqual(p.Side, m.trigger.FavorablePrice(c, p.Side), p.TakeProfit) {
		return m.exit(p.TakeProfit, t, types.ExitTakeProfit), true
	}
	if m.policy.ShouldExit(t, p.Side) {
		return m.exit(c.Close, t, types.ExitSignalReversal), true
	}
	return Trade{}, false
}

func (m *Machine) exit(price float64, t strategy.Tick, reason types.ExitReason) Trade {
	trade := closeTrade(m.position, price, t.Candle, t.Index, reason, m.balance)
	m.balance = trade.BalanceAfter
	m.trades = append(m.trades, trade)
	m.position.reset()

	m.logger.Debug("position closed",
		zap.String("side", string(trade.Side)),
		zap.String("reason", string(reason)),
		zap.Float64("entry", trade.EntryPrice),
		zap.Float64("exit", trade.ExitPrice),
		zap.Float64("pnl", trade.PnL),
		zap.Float64("balance", m.balance),
	)
	if m.onTrade != nil {
		m.onTrade(trade)
	}
	return trade
}

// manageStop applies the breakeven ladder and the trailing rule. The stop only tightens.
func (m *Machine) manageStop(price float64) bool {
	p := &m.position
	profitPct := p.UnrealizedPct(price)
	moved := false

	if !p.TrailingActive {
		for _, step := range m.rules.Breakeven {
			if profitPct < step.TriggerPct {
				continue
			}
			if p.tighten(types.ShiftFavorable(p.Side, p.EntryPrice, step.LockPct)) {
				p.BreakevenActive = true
				moved = true
			}
		}
	}

	if tr := m.rules.Trailing; tr != nil && (p.TrailingActive || profitPct >= tr.StartPct) {
		// trailing takes over from the breakeven ladder
		p.TrailingActive = true
		p.BreakevenActive = false
		if p.tighten(types.ShiftAdverse(p.Side, price, tr.GapPct)) {
			moved = true
		}
	}

	return moved
}

// tryEnter opens a position on an entry signal the sizer accepts
func (m *Machine) tryEnter(t strategy.Tick) (bool, error) {
	sig, ok := m.policy.Entry(t)
	if !ok {
		return false, nil
	}

	entry := t.Candle.Close
	sizing, err := m.policy.Sizer().Size(m.balance, entry, sig.Stop, sig.Side)
	if err == nil && sig.TakeProfit != 0 && types.FavorableMove(sig.Side, entry, sig.TakeProfit) <= 0 {
		err = errors.ErrInvalidStop
	}
	if err != nil {
		m.reject(t, sig, err)
		return false, err
	}

	m.position = Position{
		Side:        sig.Side,
		EntryPrice:  entry,
		EntryTime:   t.Candle.CloseTime,
		EntryIndex:  t.Index,
		Quantity:    sizing.Quantity,
		Leverage:    sizing.Leverage,
		Margin:      sizing.Margin,
		Stop:        sig.Stop,
		InitialStop: sig.Stop,
		TakeProfit:  sig.TakeProfit,
		Regime:      sig.Regime,
	}

	m.logger.Debug("position opened",
		zap.String("side", string(sig.Side)),
		zap.String("reason", sig.Reason),
		zap.Float64("entry", entry),
		zap.Float64("stop", sig.Stop),
		zap.Float64("take_profit", sig.TakeProfit),
		zap.Float64("qty", sizing.Quantity),
		zap.Float64("leverage", sizing.Leverage),
	)
	if m.onEntry != nil {
		m.onEntry(m.position)
	}
	return true, nil
}

func (m *Machine) reject(t strategy.Tick, sig strategy.EntrySignal, err error) {
	switch {
	case errors.Is(err, errors.ErrMarginExceeded):
		m.rejections.MarginExceeded++
	case errors.Is(err, errors.ErrInvalidStop):
		m.rejections.InvalidStop++
	}

	m.logger.Warn("entry rejected",
		zap.Int("index", t.Index),
		zap.String("side", string(sig.Side)),
		zap.Float64("price", t.Candle.Close),
		zap.Float64("stop", sig.Stop),
		zap.Float64("balance", m.balance),
		zap.Error(err),
	)
}

// Position returns a copy of the current position
func (m *Machine) Position() Position {
	return m.position
}

// Balance returns the realised balance
func (m *Machine) Balance() float64 {
	return m.balance
}

// Trades returns a copy of the ledger
func (m *Machine) Trades() []Trade {
	out := make([]Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// Rejections returns the rejection counters
func (m *Machine) Rejections() Rejections {
	return m.rejections
}
