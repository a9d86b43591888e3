package data

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
)

// DefaultFileLocator finds CSV dumps laid out as
// <root>/<exchange>/<category>/<SYMBOL>/<minutes>/candles.csv
type DefaultFileLocator struct{}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// FindDataFile returns the first existing candles.csv across the exchange's categories, or ""
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchangeName, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)

	minutes, err := exchange.IntervalMinutes(interval)
	if err != nil {
		return ""
	}

	var categories []string
	switch strings.ToLower(exchangeName) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	case "binance":
		categories = []string{"spot", "futures"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	for _, category := range categories {
		path := filepath.Join(dataRoot, strings.ToLower(exchangeName), category, symbol, minutes, "candles.csv")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
