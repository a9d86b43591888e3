package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rawKline(open time.Time, o, h, l, c string) *binance.Kline {
	return &binance.Kline{
		OpenTime:  open.UnixMilli(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    "12.5",
		CloseTime: open.Add(time.Minute - time.Millisecond).UnixMilli(),
	}
}

func newTestBinanceClient(klines klinesFunc) *BinanceClient {
	return &BinanceClient{
		klines: klines,
		now:    func() time.Time { return jan1.Add(2*time.Minute + 30*time.Second) },
		logger: zap.NewNop(),
	}
}

func TestBinanceClient_Klines(t *testing.T) {
	var got KlineRequest
	client := newTestBinanceClient(func(_ context.Context, req KlineRequest) ([]*binance.Kline, error) {
		got = req
		return []*binance.Kline{
			rawKline(jan1, "100", "101", "99", "100.5"),
			rawKline(jan1.Add(time.Minute), "100.5", "102", "100", "101"),
			rawKline(jan1.Add(2*time.Minute), "101", "101.5", "100.8", "101.2"), // still open
		}, nil
	})

	candles, err := client.Klines(context.Background(), KlineRequest{
		Symbol: "BTCUSDT", Interval: "1m", Start: jan1, End: jan1.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, MaxKlinesPerRequest, got.Limit, "zero limit becomes the page maximum")
	require.Len(t, candles, 2, "the forming kline is dropped")
	assert.Equal(t, jan1, candles[0].OpenTime)
	assert.Equal(t, jan1.Add(time.Minute-time.Millisecond), candles[0].CloseTime)
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 12.5, candles[1].Volume)
}

func TestBinanceClient_Klines_Errors(t *testing.T) {
	client := newTestBinanceClient(func(context.Context, KlineRequest) ([]*binance.Kline, error) {
		return nil, errors.New("connection reset")
	})
	_, err := client.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", Interval: "1m"})
	assert.ErrorContains(t, err, "connection reset")

	client = newTestBinanceClient(func(context.Context, KlineRequest) ([]*binance.Kline, error) {
		return []*binance.Kline{rawKline(jan1, "100", "oops", "99", "100")}, nil
	})
	_, err = client.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", Interval: "1m"})
	assert.ErrorContains(t, err, "invalid number")
}

func TestBinanceClient_Instrument(t *testing.T) {
	client := newTestBinanceClient(nil)
	client.exchangeInfo = func(_ context.Context, symbol string) (*binance.ExchangeInfo, error) {
		return &binance.ExchangeInfo{Symbols: []binance.Symbol{{
			Symbol: symbol,
			Filters: []map[string]interface{}{
				{"filterType": "PRICE_FILTER", "minPrice": "0.01", "maxPrice": "1000000.00", "tickSize": "0.01"},
				{"filterType": "LOT_SIZE", "minQty": "0.00001", "maxQty": "9000", "stepSize": "0.00001"},
			},
		}}}, nil
	}

	info, err := client.Instrument(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.01").Equal(info.TickSize))
	assert.True(t, decimal.RequireFromString("0.00001").Equal(info.StepSize))
	assert.True(t, decimal.RequireFromString("9000").Equal(info.MaxQty))

	_, err = client.Instrument(context.Background(), "")
	assert.ErrorContains(t, err, "symbol is required")

	_, err = client.Instrument(context.Background(), "ETHBTC")
	assert.NoError(t, err, "exchange info echoes the requested symbol")
}

func TestBinanceClient_Instrument_UnknownSymbol(t *testing.T) {
	client := newTestBinanceClient(nil)
	calls := 0
	client.exchangeInfo = func(_ context.Context, _ string) (*binance.ExchangeInfo, error) {
		calls++
		return &binance.ExchangeInfo{Symbols: []binance.Symbol{{Symbol: ""}}}, nil
	}

	_, err := client.Instrument(context.Background(), "")
	assert.Error(t, err)
	assert.Zero(t, calls, "an empty symbol never reaches the exchange")

	_, err = client.Instrument(context.Background(), "BTCUSDT")
	assert.ErrorContains(t, err, "not found")
	assert.Equal(t, 1, calls)
}

func TestKlineStream_DeliversFinalKlines(t *testing.T) {
	client := newTestBinanceClient(nil)
	client.wsKlines = func(symbol, interval string, handler binance.WsKlineHandler, errHandler binance.ErrHandler) (chan struct{}, chan struct{}, error) {
		doneC := make(chan struct{})
		stopC := make(chan struct{})
		go func() {
			defer close(doneC)
			handler(&binance.WsKlineEvent{Symbol: symbol, Kline: binance.WsKline{
				StartTime: jan1.UnixMilli(), EndTime: jan1.Add(time.Minute - time.Millisecond).UnixMilli(),
				Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "3", IsFinal: false,
			}})
			handler(&binance.WsKlineEvent{Symbol: symbol, Kline: binance.WsKline{
				StartTime: jan1.UnixMilli(), EndTime: jan1.Add(time.Minute - time.Millisecond).UnixMilli(),
				Open: "1", High: "2", Low: "0.5", Close: "1.7", Volume: "3", IsFinal: true,
			}})
			errHandler(errors.New("ping timeout"))
			<-stopC
		}()
		return doneC, stopC, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	candles := make(chan types.Candle, 4)
	streamErrs := make(chan error, 4)
	stream := client.Stream("BTCUSDT", "1m")

	done := make(chan error, 1)
	go func() {
		done <- stream.Run(ctx, func(c types.Candle) { candles <- c }, func(err error) { streamErrs <- err })
	}()

	select {
	case err := <-streamErrs:
		assert.ErrorContains(t, err, "ping timeout")
	case <-time.After(time.Second):
		t.Fatal("stream error not reported")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, candles, 1, "only the final kline is delivered")
	assert.Equal(t, 1.7, (<-candles).Close)

	stream.Stop()
}
