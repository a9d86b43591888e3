package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

type klinesFunc func(ctx context.Context, req KlineRequest) ([]*binance.Kline, error)

type exchangeInfoFunc func(ctx context.Context, symbol string) (*binance.ExchangeInfo, error)

// BinanceClient reads spot market data through go-binance
type BinanceClient struct {
	klines       klinesFunc
	exchangeInfo exchangeInfoFunc
	wsKlines     WsKlineServeFunc
	now          func() time.Time
	logger       *zap.Logger
}

// NewBinanceClient creates a Binance market data client. Keys may be empty, klines are public.
func NewBinanceClient(apiKey, apiSecret string, testnet bool, logger *zap.Logger) *BinanceClient {
	if testnet {
		binance.UseTestnet = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := binance.NewClient(apiKey, apiSecret)

	return &BinanceClient{
		klines: func(ctx context.Context, req KlineRequest) ([]*binance.Kline, error) {
			return client.NewKlinesService().
				Symbol(req.Symbol).
				Interval(req.Interval).
				StartTime(req.Start.UnixMilli()).
				EndTime(req.End.UnixMilli()).
				Limit(req.Limit).
				Do(ctx)
		},
		exchangeInfo: func(ctx context.Context, symbol string) (*binance.ExchangeInfo, error) {
			return client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
		},
		wsKlines: binance.WsKlineServe,
		now:      time.Now,
		logger:   logger,
	}
}

// Name returns the exchange name
func (b *BinanceClient) Name() string {
	return "binance"
}

// Klines fetches one page of closed candles
func (b *BinanceClient) Klines(ctx context.Context, req KlineRequest) ([]types.Candle, error) {
	if req.Limit <= 0 || req.Limit > MaxKlinesPerRequest {
		req.Limit = MaxKlinesPerRequest
	}

	raw, err := b.klines(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from Binance: %w", err)
	}

	nowMs := b.now().UnixMilli()
	candles := make([]types.Candle, 0, len(raw))
	for _, k := range raw {
		// the last kline is still forming when the range reaches the present
		if k.CloseTime >= nowMs {
			continue
		}
		c, err := candleFromKline(k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}

	b.logger.Debug("binance klines",
		zap.String("symbol", req.Symbol),
		zap.String("interval", req.Interval),
		zap.Int("count", len(candles)))

	return candles, nil
}

// Instrument reads the LOT_SIZE and PRICE_FILTER of a symbol
func (b *BinanceClient) Instrument(ctx context.Context, symbol string) (InstrumentInfo, error) {
	if symbol == "" {
		return InstrumentInfo{}, fmt.Errorf("symbol is required")
	}
	info, err := b.exchangeInfo(ctx, symbol)
	if err != nil {
		return InstrumentInfo{}, fmt.Errorf("failed to fetch exchange info from Binance: %w", err)
	}

	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}

		out := InstrumentInfo{Symbol: symbol}
		if lot := s.LotSizeFilter(); lot != nil {
			out.StepSize = parseDecimal(lot.StepSize)
			out.MinQty = parseDecimal(lot.MinQuantity)
			out.MaxQty = parseDecimal(lot.MaxQuantity)
		}
		if price := s.PriceFilter(); price != nil {
			out.TickSize = parseDecimal(price.TickSize)
		}
		return out, nil
	}

	return InstrumentInfo{}, fmt.Errorf("symbol %s not found on Binance", symbol)
}

func candleFromKline(k *binance.Kline) (types.Candle, error) {
	var values [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("kline at %d: invalid number %q: %w", k.OpenTime, s, err)
		}
		values[i] = v
	}

	return types.Candle{
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
	}, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
