package live

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// closeGrace is how long after a candle close the poller asks for it
const closeGrace = 2 * time.Second

// PollingStream asks the REST API for new candles once per interval, right
// after each candle close. It serves exchanges without a kline websocket.
type PollingStream struct {
	source   exchange.MarketData
	symbol   string
	interval string
	step     time.Duration
	logger   *zap.Logger
	now      func() time.Time

	lastOpen time.Time
}

func NewPollingStream(source exchange.MarketData, symbol, interval string, logger *zap.Logger) (*PollingStream, error) {
	step, err := exchange.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingStream{
		source:   source,
		symbol:   symbol,
		interval: interval,
		step:     step,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// untilNextClose returns the wait until the running candle has closed
func (p *PollingStream) untilNextClose() time.Duration {
	now := p.now()
	next := now.Truncate(p.step).Add(p.step)
	return next.Sub(now) + closeGrace
}

// Run polls until ctx is cancelled. Fetch errors go to onError and polling continues.
func (p *PollingStream) Run(ctx context.Context, onCandle func(types.Candle), onError func(error)) error {
	p.logger.Info("polling klines", zap.String("symbol", p.symbol), zap.String("interval", p.interval))

	timer := time.NewTimer(p.untilNextClose())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if err := p.poll(ctx, onCandle); err != nil && onError != nil {
			onError(err)
		}
		timer.Reset(p.untilNextClose())
	}
}

// poll emits the closed candles newer than the last one emitted
func (p *PollingStream) poll(ctx context.Context, onCandle func(types.Candle)) error {
	now := p.now()
	candles, err := p.source.Klines(ctx, exchange.KlineRequest{
		Symbol:   p.symbol,
		Interval: p.interval,
		Start:    now.Add(-3 * p.step),
		End:      now,
		Limit:    3,
	})
	if err != nil {
		return fmt.Errorf("poll %s klines: %w", p.symbol, err)
	}

	for _, c := range candles {
		if !c.OpenTime.After(p.lastOpen) {
			continue
		}
		p.lastOpen = c.OpenTime
		onCandle(c)
	}
	return nil
}
