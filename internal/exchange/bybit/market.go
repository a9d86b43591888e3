package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

var intervalLengths = map[KlineInterval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// IntervalFor maps a candle length to the Bybit interval code
func IntervalFor(d time.Duration) (KlineInterval, error) {
	for code, length := range intervalLengths {
		if length == d {
			return code, nil
		}
	}
	return "", fmt.Errorf("interval %s is not offered by Bybit", d)
}

// Duration returns the candle length of the interval
func (k KlineInterval) Duration() time.Duration {
	return intervalLengths[k]
}

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Symbol   string
	Interval KlineInterval
	Start    time.Time
	End      time.Time
	Limit    int // max 1000
}

// GetKlines fetches raw klines, newest first as Bybit returns them
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Limit <= 0 || params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": c.category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if !params.Start.IsZero() {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if !params.End.IsZero() {
		reqParams["end"] = params.End.UnixMilli()
	}

	var klines []Kline
	err := c.Retry(ctx, func() error {
		result, err := c.call(ctx, endpointKline, reqParams)
		if err != nil {
			return fmt.Errorf("failed to get klines: %w", err)
		}
		klines, err = parseKlineResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return klines, nil
}

// Candles fetches klines and returns the closed ones as candles, oldest first
func (c *Client) Candles(ctx context.Context, params KlineParams) ([]types.Candle, error) {
	length := params.Interval.Duration()
	if length == 0 {
		return nil, fmt.Errorf("unknown Bybit interval %q", params.Interval)
	}

	klines, err := c.GetKlines(ctx, params)
	if err != nil {
		return nil, err
	}

	now := c.now()
	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		closeTime := k.StartTime.Add(length - time.Millisecond)
		if !closeTime.Before(now) {
			continue
		}
		candles = append(candles, types.Candle{
			OpenTime:  k.StartTime,
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Volume,
			CloseTime: closeTime,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

// decodeResult checks the return code and decodes the result payload into out
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// parseKlineResponse parses the API response into Kline structs
func parseKlineResponse(response interface{}) ([]Kline, error) {
	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := decodeResult(response, &klineResult); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 7 {
			continue
		}

		// [startTime, openPrice, highPrice, lowPrice, closePrice, volume, turnover]
		var nums [6]float64
		for i := range nums {
			v, err := strconv.ParseFloat(item[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("kline %s: invalid number %q: %w", item[0], item[i+1], err)
			}
			nums[i] = v
		}
		start, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kline start time %q: %w", item[0], err)
		}

		klines = append(klines, Kline{
			StartTime:  time.UnixMilli(start).UTC(),
			OpenPrice:  nums[0],
			HighPrice:  nums[1],
			LowPrice:   nums[2],
			ClosePrice: nums[3],
			Volume:     nums[4],
			Turnover:   nums[5],
		})
	}

	return klines, nil
}
