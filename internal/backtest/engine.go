package backtest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// BacktestEngine replays a candle series through one policy
type BacktestEngine struct {
	initialBalance float64
	policy         strategy.Policy
	logger         *zap.Logger
	onTrade        func(Trade)
	onEntry        func(Position)
}

// BacktestResult is the outcome of one run. Summary is derived from Trades.
type BacktestResult struct {
	ID           string        `json:"id"`
	Policy       string        `json:"policy"`
	Params       interface{}   `json:"params,omitempty"`
	BalanceStart float64       `json:"balanceStart"`
	BalanceEnd   float64       `json:"balanceEnd"`
	Trades       []Trade       `json:"trades"`
	Open         *Position     `json:"open,omitempty"`
	Summary      Summary       `json:"summary"`
	Rejections   Rejections    `json:"rejections"`
	Start        int           `json:"startIndex"`
	Candles      int           `json:"candles"`
	Duration     time.Duration `json:"duration"`
}

// EngineOption configures a BacktestEngine
type EngineOption func(*BacktestEngine)

// WithLogger sets the logger handed to the state machine
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *BacktestEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTradeHook is called for every closed trade
func WithTradeHook(fn func(Trade)) EngineOption {
	return func(e *BacktestEngine) { e.onTrade = fn }
}

// WithEntryHook is called for every opened position
func WithEntryHook(fn func(Position)) EngineOption {
	return func(e *BacktestEngine) { e.onEntry = fn }
}

// NewBacktestEngine creates an engine starting from initialBalance
func NewBacktestEngine(initialBalance float64, policy strategy.Policy, opts ...EngineOption) *BacktestEngine {
	e := &BacktestEngine{
		initialBalance: initialBalance,
		policy:         policy,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Simulate computes the indicators the policy requires and runs the candles
func (e *BacktestEngine) Simulate(candles []types.Candle) (*BacktestResult, error) {
	set, err := indicators.Compute(candles, e.policy.Requirements().Specs())
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorCategoryIndicator, "backtest", "compute_indicators")
	}
	return e.Run(candles, set)
}

// Run walks the candles once. Malformed candles abort with no result; too few
// candles for the warm-up return an empty result with ErrDataInsufficient.
func (e *BacktestEngine) Run(candles []types.Candle, set indicators.Set) (*BacktestResult, error) {
	started := time.Now()

	if err := types.ValidateCandles(candles); err != nil {
		return nil, errors.NewDataError("backtest", "validate_candles", fmt.Errorf("%w: %w", errors.ErrMalformedData, err))
	}

	reqs := e.policy.Requirements()
	for _, r := range reqs.Series {
		if _, ok := set[r.Role]; !ok {
			return nil, errors.WrapError(
				fmt.Errorf("role %q (%s %d) missing from indicator set: %w", r.Role, r.Kind, r.Period, errors.ErrIndicatorMisaligned),
				errors.ErrorCategoryIndicator, "backtest", "align")
		}
	}

	aligner, err := NewAligner(len(candles), set)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorCategoryIndicator, "backtest", "align")
	}

	result := e.emptyResult(len(candles))
	start := aligner.Start(reqs.Guard())
	result.Start = start

	if start >= len(candles) {
		result.Duration = time.Since(started)
		return result, fmt.Errorf("%d candles, first evaluable index %d: %w", len(candles), start, errors.ErrDataInsufficient)
	}

	m := NewMachine(e.policy, e.initialBalance,
		WithMachineLogger(e.logger),
		OnTrade(e.onTrade),
		OnEntry(e.onEntry),
	)

	for i := start; i < len(candles); i++ {
		m.Step(strategy.Tick{
			Index:   i,
			Candle:  candles[i],
			Candles: candles,
			Ind:     aligner,
		})
	}

	result.Trades = m.Trades()
	result.BalanceEnd = m.Balance()
	result.Rejections = m.Rejections()
	if pos := m.Position(); pos.IsOpen() {
		result.Open = &pos
	}
	result.Summary = Summarize(result.BalanceStart, result.BalanceEnd, result.Trades)
	result.Duration = time.Since(started)

	e.logger.Info("backtest finished",
		zap.String("run_id", result.ID),
		zap.String("policy", result.Policy),
		zap.Int("candles", len(candles)),
		zap.Int("start", start),
		zap.Int("trades", result.Summary.Total),
		zap.Float64("win_rate", result.Summary.WinRate),
		zap.Float64("profit_pct", result.Summary.ProfitPct),
		zap.Int("skipped", result.Rejections.SkippedUndefined),
	)
	return result, nil
}

func (e *BacktestEngine) emptyResult(n int) *BacktestResult {
	return &BacktestResult{
		ID:           uuid.NewString(),
		Policy:       e.policy.Name(),
		Params:       e.policy.Params(),
		BalanceStart: e.initialBalance,
		BalanceEnd:   e.initialBalance,
		Trades:       make([]Trade, 0),
		Summary:      Summarize(e.initialBalance, e.initialBalance, nil),
		Candles:      n,
	}
}
