package live

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/monitoring"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// PaperOrder is an entry as it would be sent to the exchange, on its price and quantity grid
type PaperOrder struct {
	Symbol     string          `json:"symbol"`
	Side       types.Side      `json:"side"`
	Time       time.Time       `json:"time"`
	Price      float64         `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Stop       decimal.Decimal `json:"stop"`
	TakeProfit decimal.Decimal `json:"takeProfit"`
	Leverage   float64         `json:"leverage"`
	Regime     types.Regime    `json:"regime"`
	// Err is set when the quantity does not fit the instrument; the paper position is still tracked
	Err error `json:"-"`
}

// Status is the state of a session after a candle
type Status struct {
	Symbol   string
	Candle   types.Candle
	Position backtest.Position
	Balance  float64
	Trades   int
	Event    backtest.StepEvent
}

// SignalSink receives what a session decides. Calls come from the goroutine stepping the session.
type SignalSink interface {
	Entry(order PaperOrder)
	Exit(symbol string, trade backtest.Trade)
	Rejected(symbol string, err error)
	Status(st Status)
}

// LogSink logs signals and mirrors them into the Prometheus gauges when metrics are set
type LogSink struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewLogSink creates a sink; metrics may be nil
func NewLogSink(logger *zap.Logger, metrics *monitoring.Metrics) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, metrics: metrics}
}

func (s *LogSink) Entry(order PaperOrder) {
	fields := []zap.Field{
		zap.String("kind", "trade"),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("price", order.Price),
		zap.String("qty", order.Quantity.String()),
		zap.String("stop", order.Stop.String()),
		zap.Float64("leverage", order.Leverage),
		zap.String("regime", string(order.Regime)),
	}
	if !order.TakeProfit.IsZero() {
		fields = append(fields, zap.String("take_profit", order.TakeProfit.String()))
	}
	if order.Err != nil {
		fields = append(fields, zap.NamedError("qty_error", order.Err))
	}
	s.logger.Info("paper entry", fields...)

	if s.metrics != nil {
		s.metrics.UpdatePosition(order.Symbol, order.Side.Sign())
	}
}

func (s *LogSink) Exit(symbol string, trade backtest.Trade) {
	s.logger.Info("paper exit",
		zap.String("kind", "trade"),
		zap.String("symbol", symbol),
		zap.String("side", string(trade.Side)),
		zap.String("reason", string(trade.ExitReason)),
		zap.String("result", string(trade.Result)),
		zap.Float64("entry", trade.EntryPrice),
		zap.Float64("exit", trade.ExitPrice),
		zap.Float64("profit_pct", trade.ProfitPct),
		zap.Float64("pnl", trade.PnL),
		zap.Float64("balance", trade.BalanceAfter),
	)

	if s.metrics != nil {
		s.metrics.RecordTrade(symbol, string(trade.Side), string(trade.Result), string(trade.ExitReason), trade.ProfitPct)
		s.metrics.UpdatePosition(symbol, 0)
		s.metrics.UpdateBalance(symbol, trade.BalanceAfter)
	}
}

func (s *LogSink) Rejected(symbol string, err error) {
	s.logger.Warn("paper entry rejected", zap.String("symbol", symbol), zap.Error(err))
	if s.metrics != nil {
		s.metrics.AddRejections(symbol, rejectionReason(err), 1)
	}
}

func (s *LogSink) Status(st Status) {
	s.logger.Debug("candle processed",
		zap.String("kind", "status"),
		zap.String("symbol", st.Symbol),
		zap.Time("close_time", st.Candle.CloseTime),
		zap.Float64("close", st.Candle.Close),
		zap.String("position", string(st.Position.Side)),
		zap.Float64("stop", st.Position.Stop),
		zap.Float64("balance", st.Balance),
		zap.Bool("skipped", st.Event.Skipped),
	)
	if s.metrics != nil {
		s.metrics.UpdatePrice(st.Symbol, st.Candle.Close)
		s.metrics.UpdateBalance(st.Symbol, st.Balance)
	}
}
