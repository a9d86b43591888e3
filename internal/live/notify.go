package live

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/notifications"
)

const notifyTimeout = 10 * time.Second

// NotifySink forwards entries, exits and rejections to a Notifier before handing
// every call to the next sink. A failed alert is logged and never blocks the session.
type NotifySink struct {
	next     SignalSink
	notifier notifications.Notifier
	logger   *zap.Logger
}

func NewNotifySink(next SignalSink, notifier notifications.Notifier, logger *zap.Logger) *NotifySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifySink{next: next, notifier: notifier, logger: logger}
}

func (s *NotifySink) Entry(order PaperOrder) {
	msg := fmt.Sprintf("%s %s qty %s @ %.8g\nstop %s", order.Symbol, order.Side, order.Quantity, order.Price, order.Stop)
	if !order.TakeProfit.IsZero() {
		msg += fmt.Sprintf(" tp %s", order.TakeProfit)
	}
	msg += fmt.Sprintf("\nleverage %gx regime %s", order.Leverage, order.Regime)
	s.send(notifications.LevelInfo, msg)
	s.next.Entry(order)
}

func (s *NotifySink) Exit(symbol string, trade backtest.Trade) {
	level := notifications.LevelSuccess
	if trade.PnL < 0 {
		level = notifications.LevelWarning
	}
	s.send(level, fmt.Sprintf("%s %s closed by %s\n%.8g -> %.8g (%+.2f%%)\nbalance %.2f",
		symbol, trade.Side, trade.ExitReason, trade.EntryPrice, trade.ExitPrice, trade.ProfitPct, trade.BalanceAfter))
	s.next.Exit(symbol, trade)
}

func (s *NotifySink) Rejected(symbol string, err error) {
	s.send(notifications.LevelError, fmt.Sprintf("%s entry rejected: %v", symbol, err))
	s.next.Rejected(symbol, err)
}

func (s *NotifySink) Status(st Status) {
	s.next.Status(st)
}

func (s *NotifySink) send(level, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.SendAlert(ctx, level, msg); err != nil {
		s.logger.Warn("notification failed", zap.String("level", level), zap.Error(err))
	}
}
