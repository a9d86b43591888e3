package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// MaxKlinesPerRequest is the page size both supported venues accept
const MaxKlinesPerRequest = 1000

// MarketData is the read-only market surface of an exchange
type MarketData interface {
	// Name returns the lower-case exchange name
	Name() string

	// Klines returns closed candles opening in [Start, End], oldest first, at most Limit of them
	Klines(ctx context.Context, req KlineRequest) ([]types.Candle, error)

	// Instrument returns the price and quantity grid of a symbol
	Instrument(ctx context.Context, symbol string) (InstrumentInfo, error)
}

// KlineRequest selects one page of candles
type KlineRequest struct {
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
	Limit    int
}

// InstrumentInfo is the price and quantity grid orders must sit on
type InstrumentInfo struct {
	Symbol   string          `json:"symbol"`
	TickSize decimal.Decimal `json:"tickSize"`
	StepSize decimal.Decimal `json:"stepSize"`
	MinQty   decimal.Decimal `json:"minQty"`
	MaxQty   decimal.Decimal `json:"maxQty"`
}
