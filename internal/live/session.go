// Package live runs a policy against closed candles as they arrive, tracking a
// paper position with the same state machine a backtest uses.
package live

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// ErrStaleCandle means a candle did not open after the newest one in the window
var ErrStaleCandle = stderrors.New("candle does not advance the window")

// Session is the paper trading state of one symbol. Step is safe for concurrent
// use; candles are evaluated one at a time in arrival order.
type Session struct {
	symbol     string
	policy     strategy.Policy
	specs      []indicators.Spec
	window     *Window
	machine    *backtest.Machine
	instrument *Instrument
	sink       SignalSink
	logger     *zap.Logger
	start      float64

	mu        sync.Mutex
	lastEntry *PaperOrder
}

// SessionOption configures a Session
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	windowSize int
	instrument *Instrument
	sink       SignalSink
	logger     *zap.Logger
}

func WithWindowSize(n int) SessionOption {
	return func(o *sessionOptions) { o.windowSize = n }
}

// WithInstrument normalises paper orders onto the exchange grid
func WithInstrument(in *Instrument) SessionOption {
	return func(o *sessionOptions) { o.instrument = in }
}

func WithSink(sink SignalSink) SessionOption {
	return func(o *sessionOptions) { o.sink = sink }
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewSession creates a flat session starting from balance
func NewSession(symbol string, policy strategy.Policy, balance float64, opts ...SessionOption) *Session {
	o := sessionOptions{windowSize: DefaultWindowSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = NewLogSink(o.logger, nil)
	}

	s := &Session{
		symbol:     strings.ToUpper(symbol),
		policy:     policy,
		specs:      policy.Requirements().Specs(),
		window:     NewWindow(o.windowSize),
		instrument: o.instrument,
		sink:       o.sink,
		start:      balance,
		logger:     o.logger.With(zap.String("symbol", strings.ToUpper(symbol)), zap.String("policy", policy.Name())),
	}
	s.machine = backtest.NewMachine(policy, balance,
		backtest.WithMachineLogger(s.logger),
		backtest.OnEntry(s.onEntry),
		backtest.OnTrade(func(t backtest.Trade) { s.sink.Exit(s.symbol, t) }),
	)
	return s
}

// Symbol returns the upper-case symbol
func (s *Session) Symbol() string {
	return s.symbol
}

// Seed fills the window with history so indicators are warm on the first live candle.
// The history is not traded.
func (s *Session) Seed(history []types.Candle) error {
	if err := s.window.Seed(history); err != nil {
		return errors.NewDataError("live", "seed", err)
	}
	s.logger.Info("window seeded", zap.Int("candles", s.window.Len()))
	return nil
}

// Step appends a closed candle and evaluates it as the current tick
func (s *Session) Step(c types.Candle) (backtest.StepEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appended, err := s.window.Append(c)
	if err != nil {
		return backtest.StepEvent{}, errors.NewDataError("live", "append", err)
	}
	if !appended {
		return backtest.StepEvent{}, fmt.Errorf("%s open %s: %w", s.symbol, c.OpenTime.UTC().Format("2006-01-02 15:04"), ErrStaleCandle)
	}

	candles := s.window.Snapshot()
	set, err := indicators.Compute(candles, s.specs)
	if err != nil {
		return backtest.StepEvent{}, errors.WrapError(err, errors.ErrorCategoryIndicator, "live", "compute_indicators")
	}
	aligner, err := backtest.NewAligner(len(candles), set)
	if err != nil {
		return backtest.StepEvent{}, errors.WrapError(err, errors.ErrorCategoryIndicator, "live", "align")
	}

	last := len(candles) - 1
	ev := s.machine.Step(strategy.Tick{
		Index:   last,
		Candle:  candles[last],
		Candles: candles,
		Ind:     aligner,
	})
	if ev.Rejected != nil {
		s.sink.Rejected(s.symbol, ev.Rejected)
	}

	s.sink.Status(Status{
		Symbol:   s.symbol,
		Candle:   c,
		Position: s.machine.Position(),
		Balance:  s.machine.Balance(),
		Trades:   len(s.machine.Trades()),
		Event:    ev,
	})
	return ev, nil
}

// Position returns the paper position
func (s *Session) Position() backtest.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Position()
}

// LastEntry returns the most recent paper order, nil before the first entry
func (s *Session) LastEntry() *PaperOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastEntry == nil {
		return nil
	}
	order := *s.lastEntry
	return &order
}

// Result reports the session so far in the shape of a backtest result
func (s *Session) Result() *backtest.BacktestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.machine.Trades()
	res := &backtest.BacktestResult{
		Policy:       s.policy.Name(),
		Params:       s.policy.Params(),
		BalanceStart: s.start,
		BalanceEnd:   s.machine.Balance(),
		Trades:       trades,
		Rejections:   s.machine.Rejections(),
		Candles:      s.window.Len(),
	}
	if pos := s.machine.Position(); pos.IsOpen() {
		res.Open = &pos
	}
	res.Summary = backtest.Summarize(res.BalanceStart, res.BalanceEnd, trades)
	return res
}

// onEntry runs inside machine.Step, with s.mu held
func (s *Session) onEntry(p backtest.Position) {
	order := PaperOrder{
		Symbol:     s.symbol,
		Side:       p.Side,
		Time:       p.EntryTime,
		Price:      p.EntryPrice,
		Quantity:   decimal.NewFromFloat(p.Quantity),
		Stop:       decimal.NewFromFloat(p.Stop),
		TakeProfit: decimal.NewFromFloat(p.TakeProfit),
		Leverage:   p.Leverage,
		Regime:     p.Regime,
	}
	if s.instrument != nil {
		order.Quantity, order.Err = s.instrument.NormalizeQty(p.Quantity)
		order.Stop = s.instrument.NormalizePrice(p.Stop, p.Side)
		if p.TakeProfit != 0 {
			order.TakeProfit = s.instrument.NormalizePrice(p.TakeProfit, p.Side)
		}
	}
	s.lastEntry = &order
	s.sink.Entry(order)
}

// rejectionReason maps a sizing error to the metric label
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrMarginExceeded):
		return "marginExceeded"
	case errors.Is(err, errors.ErrInvalidStop):
		return "invalidStop"
	default:
		return "other"
	}
}
