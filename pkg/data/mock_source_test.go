package data

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) Klines(ctx context.Context, req exchange.KlineRequest) ([]types.Candle, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(exchange.KlineRequest) []types.Candle); ok {
		return fn(req), args.Error(1)
	}
	candles, _ := args.Get(0).([]types.Candle)
	return candles, args.Error(1)
}

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// minuteCandles builds n one-minute candles opening at from
func minuteCandles(from time.Time, n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		open := from.Add(time.Duration(i) * time.Minute)
		price := 100 + float64(i)
		out[i] = types.Candle{
			OpenTime:  open,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    10,
			CloseTime: open.Add(time.Minute - time.Millisecond),
		}
	}
	return out
}

// pagedSource answers every request with the candles of history inside the window
func pagedSource(history []types.Candle) *mockSource {
	src := &mockSource{}
	src.On("Klines", mock.Anything, mock.AnythingOfType("exchange.KlineRequest")).
		Return(func(req exchange.KlineRequest) []types.Candle {
			var page []types.Candle
			for _, c := range history {
				if !c.OpenTime.Before(req.Start) && !c.OpenTime.After(req.End) && len(page) < req.Limit {
					page = append(page, c)
				}
			}
			return page
		}, nil)
	return src
}
