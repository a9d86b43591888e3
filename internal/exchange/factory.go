package exchange

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange/bybit"
)

// Config holds credentials and environment for one exchange
type Config struct {
	Name      string `json:"name" yaml:"name" validate:"omitempty,oneof=binance bybit"`
	APIKey    string `json:"-" yaml:"-"`
	APISecret string `json:"-" yaml:"-"`
	Testnet   bool   `json:"testnet" yaml:"testnet"`
	// Category applies to Bybit only
	Category string `json:"category,omitempty" yaml:"category,omitempty" validate:"omitempty,oneof=spot linear inverse"`
}

// SupportedExchanges returns the exchange names New accepts
func SupportedExchanges() []string {
	return []string{"binance", "bybit"}
}

// New creates the market data client named in the config; an empty name means binance
func New(config Config, logger *zap.Logger) (MarketData, error) {
	switch strings.ToLower(strings.TrimSpace(config.Name)) {
	case "", "binance":
		return NewBinanceClient(config.APIKey, config.APISecret, config.Testnet, logger), nil
	case "bybit":
		return NewBybitClient(bybit.Config{
			APIKey:    config.APIKey,
			APISecret: config.APISecret,
			Testnet:   config.Testnet,
			Category:  config.Category,
		}, logger), nil
	default:
		return nil, fmt.Errorf("exchange %q is not supported (supported: %s)",
			config.Name, strings.Join(SupportedExchanges(), ", "))
	}
}
