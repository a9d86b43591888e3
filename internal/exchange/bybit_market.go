package exchange

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange/bybit"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// BybitClient adapts the bybit package to MarketData
type BybitClient struct {
	client      *bybit.Client
	instruments *bybit.InstrumentManager
	logger      *zap.Logger
}

// NewBybitClient creates a Bybit market data client
func NewBybitClient(config bybit.Config, logger *zap.Logger) *BybitClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := bybit.NewClient(config)
	return &BybitClient{
		client:      client,
		instruments: bybit.NewInstrumentManager(client),
		logger:      logger,
	}
}

// Name returns the exchange name
func (b *BybitClient) Name() string {
	return "bybit"
}

// Klines fetches one page of closed candles
func (b *BybitClient) Klines(ctx context.Context, req KlineRequest) ([]types.Candle, error) {
	length, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	interval, err := bybit.IntervalFor(length)
	if err != nil {
		return nil, err
	}

	candles, err := b.client.Candles(ctx, bybit.KlineParams{
		Symbol:   req.Symbol,
		Interval: interval,
		Start:    req.Start,
		End:      req.End,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from Bybit: %w", err)
	}

	b.logger.Debug("bybit klines",
		zap.String("symbol", req.Symbol),
		zap.String("interval", req.Interval),
		zap.String("category", b.client.Category()),
		zap.Int("count", len(candles)))

	return candles, nil
}

// Instrument returns the tick and step sizes of a symbol
func (b *BybitClient) Instrument(ctx context.Context, symbol string) (InstrumentInfo, error) {
	if symbol == "" {
		return InstrumentInfo{}, fmt.Errorf("symbol is required")
	}
	info, err := b.instruments.GetInstrumentInfo(ctx, symbol)
	if err != nil {
		return InstrumentInfo{}, err
	}
	return InstrumentInfo{
		Symbol:   symbol,
		TickSize: info.TickSize(),
		StepSize: info.QtyStep(),
		MinQty:   info.MinQty(),
		MaxQty:   info.MaxQty(),
	}, nil
}
