package data

import (
	"context"
	"time"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// DataProvider interface for loading historical data from various sources
type DataProvider interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.Candle, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.Candle) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache holds decoded candle files; an entry is only valid for the
// modification time it was stored with
type DataCache interface {
	Get(key string, modTime time.Time) ([]types.Candle, bool)
	Set(key string, modTime time.Time, candles []types.Candle)
	Delete(key string)
	Len() int
}

// DataFilter interface for filtering and transforming data
type DataFilter interface {
	// FilterByPeriod keeps the candles within period of the last one
	FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle

	// FilterByDateRange keeps the candles opening within [start, end]
	FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle

	// ValidateTimeSequence ensures data is in chronological order without duplicates
	ValidateTimeSequence(data []types.Candle) error
}

// KlineSource serves pages of closed candles; exchange.MarketData satisfies it
type KlineSource interface {
	Name() string
	Klines(ctx context.Context, req exchange.KlineRequest) ([]types.Candle, error)
}

// CandleStore persists fetched candles keyed by symbol, interval and period label
type CandleStore interface {
	Load(symbol, interval, label string) ([]types.Candle, error)
	Save(symbol, interval, label string, candles []types.Candle) (string, error)
	Exists(symbol, interval, label string) bool
}

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	// DateFormat is a time layout, or "ms" for epoch milliseconds
	DateFormat string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// BinanceCSVFormat reads the public kline dumps: open time in ms, then OHLCV
	BinanceCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "ms",
	}
)

// FileLocator interface for finding data files
type FileLocator interface {
	// FindDataFile returns the first existing candle file for the symbol and interval, or ""
	FindDataFile(dataRoot, exchange, symbol, interval string) string
}
