package exchange

import (
	"context"
	"fmt"
	"sync"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// WsKlineServeFunc matches binance.WsKlineServe so the stream can be replaced in tests
type WsKlineServeFunc func(symbol, interval string, handler binance.WsKlineHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)

// KlineStream delivers closed candles of one symbol from the Binance kline websocket
type KlineStream struct {
	symbol   string
	interval string
	serve    WsKlineServeFunc
	logger   *zap.Logger

	mu      sync.Mutex
	stopC   chan struct{}
	stopped bool
}

// Stream opens a kline stream for the symbol and interval
func (b *BinanceClient) Stream(symbol, interval string) *KlineStream {
	return &KlineStream{
		symbol:   symbol,
		interval: interval,
		serve:    b.wsKlines,
		logger:   b.logger,
	}
}

// Run connects and calls onCandle for every final kline until ctx is cancelled
// or the connection ends. Stream errors are logged and passed to onError when set.
func (s *KlineStream) Run(ctx context.Context, onCandle func(types.Candle), onError func(error)) error {
	handler := func(event *binance.WsKlineEvent) {
		if event == nil || !event.Kline.IsFinal {
			return
		}
		c, err := candleFromWsKline(event.Kline)
		if err != nil {
			s.logger.Warn("dropping malformed kline", zap.String("symbol", s.symbol), zap.Error(err))
			return
		}
		onCandle(c)
	}
	errHandler := func(err error) {
		s.logger.Warn("kline stream error", zap.String("symbol", s.symbol), zap.Error(err))
		if onError != nil {
			onError(err)
		}
	}

	doneC, stopC, err := s.serve(s.symbol, s.interval, handler, errHandler)
	if err != nil {
		return fmt.Errorf("failed to open kline stream for %s: %w", s.symbol, err)
	}

	s.mu.Lock()
	s.stopC = stopC
	s.mu.Unlock()

	s.logger.Info("kline stream connected", zap.String("symbol", s.symbol), zap.String("interval", s.interval))

	select {
	case <-ctx.Done():
		s.Stop()
		<-doneC
		return ctx.Err()
	case <-doneC:
		return nil
	}
}

// Stop closes the connection; safe to call more than once
func (s *KlineStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.stopC == nil {
		return
	}
	s.stopped = true
	close(s.stopC)
}

func candleFromWsKline(k binance.WsKline) (types.Candle, error) {
	return candleFromKline(&binance.Kline{
		OpenTime:  k.StartTime,
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
		CloseTime: k.EndTime,
	})
}
