package types

import (
	"fmt"
	"math"
	"time"
)

// Candle is one OHLCV bar. Backtests run on closed candles only.
type Candle struct {
	OpenTime  time.Time `json:"openTime"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"closeTime"`
}

// Closes extracts the close price of every candle
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Validate checks the prices of a single candle and that it opens before it closes
func (c Candle) Validate() error {
	if err := c.ValidatePrices(); err != nil {
		return err
	}
	if c.CloseTime.IsZero() {
		return fmt.Errorf("missing close time in candle at %s", c.OpenTime.Format(time.RFC3339))
	}
	if !c.OpenTime.Before(c.CloseTime) {
		return fmt.Errorf("open time %s not before close time %s", c.OpenTime.Format(time.RFC3339), c.CloseTime.Format(time.RFC3339))
	}
	return nil
}

// ValidatePrices checks the OHLCV values only
func (c Candle) ValidatePrices() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value in candle at %s", c.OpenTime.Format(time.RFC3339))
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price in candle at %s", c.OpenTime.Format(time.RFC3339))
	}
	if c.High < c.Low {
		return fmt.Errorf("high %.8f below low %.8f at %s", c.High, c.Low, c.OpenTime.Format(time.RFC3339))
	}
	return nil
}

// ValidateCandles checks every candle and that open times strictly increase
func ValidateCandles(candles []Candle) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && !candles[i-1].OpenTime.Before(candles[i].OpenTime) {
			return fmt.Errorf("candle %d: open time %s not after previous %s",
				i, candles[i].OpenTime.Format(time.RFC3339), candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}
