package live

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/internal/monitoring"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// CandleStream delivers closed candles until ctx is cancelled or the connection ends.
// *exchange.KlineStream and *PollingStream implement it.
type CandleStream interface {
	Run(ctx context.Context, onCandle func(types.Candle), onError func(error)) error
}

// Feed seeds a session from REST and then steps it on every streamed candle,
// reconnecting and backfilling missed candles when the stream drops.
type Feed struct {
	session  *Session
	source   exchange.MarketData
	stream   CandleStream
	interval string
	step     time.Duration

	seedSize       int
	reconnectDelay time.Duration
	health         *monitoring.HealthChecker
	metrics        *monitoring.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithSeedSize sets how many REST candles warm the window
func WithSeedSize(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.seedSize = n
		}
	}
}

func WithReconnectDelay(d time.Duration) FeedOption {
	return func(f *Feed) { f.reconnectDelay = d }
}

// WithMonitoring reports connection state and errors; either argument may be nil
func WithMonitoring(health *monitoring.HealthChecker, metrics *monitoring.Metrics) FeedOption {
	return func(f *Feed) {
		f.health = health
		f.metrics = metrics
	}
}

func WithFeedLogger(l *zap.Logger) FeedOption {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFeed wires a session to its market data source and candle stream
func NewFeed(session *Session, source exchange.MarketData, stream CandleStream, interval string, opts ...FeedOption) (*Feed, error) {
	step, err := exchange.ParseInterval(interval)
	if err != nil {
		return nil, errors.NewConfigurationError("live", "new_feed", err.Error())
	}

	f := &Feed{
		session:        session,
		source:         source,
		stream:         stream,
		interval:       interval,
		step:           step,
		seedSize:       DefaultWindowSize,
		reconnectDelay: 5 * time.Second,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Seed loads the latest closed candles over REST into the session window
func (f *Feed) Seed(ctx context.Context) error {
	now := f.now()
	candles, err := f.source.Klines(ctx, exchange.KlineRequest{
		Symbol:   f.session.Symbol(),
		Interval: f.interval,
		Start:    now.Add(-time.Duration(f.seedSize+1) * f.step),
		End:      now,
		Limit:    f.seedSize,
	})
	if err != nil {
		return errors.NewExchangeError("live", "seed", err)
	}
	if len(candles) == 0 {
		return errors.NewDataError("live", "seed", fmt.Errorf("no candles for %s %s: %w", f.session.Symbol(), f.interval, errors.ErrDataInsufficient))
	}
	return f.session.Seed(candles)
}

// Run seeds the session and processes the stream until ctx is cancelled
func (f *Feed) Run(ctx context.Context) error {
	if err := f.Seed(ctx); err != nil {
		return err
	}

	for {
		f.setConnected(true)
		err := f.stream.Run(ctx, f.onCandle, f.onError)
		f.setConnected(false)

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			f.onError(err)
		}
		f.logger.Warn("candle stream ended, reconnecting",
			zap.String("symbol", f.session.Symbol()),
			zap.Duration("delay", f.reconnectDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.reconnectDelay):
		}

		if err := f.Backfill(ctx); err != nil {
			f.onError(err)
		}
	}
}

// Backfill steps the session through candles closed since the newest one in its window
func (f *Feed) Backfill(ctx context.Context) error {
	last, ok := f.session.window.Last()
	if !ok {
		return f.Seed(ctx)
	}

	candles, err := f.source.Klines(ctx, exchange.KlineRequest{
		Symbol:   f.session.Symbol(),
		Interval: f.interval,
		Start:    last.OpenTime.Add(f.step),
		End:      f.now(),
		Limit:    exchange.MaxKlinesPerRequest,
	})
	if err != nil {
		return errors.NewExchangeError("live", "backfill", err)
	}
	if len(candles) > 0 {
		f.logger.Info("backfilling missed candles",
			zap.String("symbol", f.session.Symbol()),
			zap.Int("count", len(candles)))
	}
	for _, c := range candles {
		f.onCandle(c)
	}
	return nil
}

func (f *Feed) onCandle(c types.Candle) {
	if _, err := f.session.Step(c); err != nil {
		if errors.Is(err, ErrStaleCandle) {
			f.logger.Debug("skipping stale candle", zap.Error(err))
			return
		}
		f.onError(err)
		return
	}
	if f.health != nil {
		f.health.RecordCandle(c.CloseTime, c.Close)
	}
}

func (f *Feed) onError(err error) {
	f.logger.Error("live feed error", zap.String("symbol", f.session.Symbol()), zap.Error(err))
	if f.health != nil {
		f.health.RecordError(err)
	}
	if f.metrics != nil {
		category := "stream"
		var be *errors.BacktestError
		if errors.As(err, &be) {
			category = string(be.Category)
		}
		f.metrics.RecordError(category)
	}
}

func (f *Feed) setConnected(connected bool) {
	if f.health != nil {
		f.health.SetConnected(connected)
	}
}
