package bybit

import (
	"context"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client for market data reads
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	category   string
	retry      RetryConfig
	now        func() time.Time

	// call runs one public market request; replaced in tests
	call func(ctx context.Context, endpoint endpoint, params map[string]interface{}) (interface{}, error)
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	// Category is "spot", "linear" or "inverse"; empty means linear
	Category string
}

type endpoint int

const (
	endpointKline endpoint = iota
	endpointInstrumentInfo
)

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		category:   config.Category,
		retry:      DefaultRetryConfig(),
		now:        time.Now,
	}
	if c.category == "" {
		c.category = "linear"
	}
	c.call = c.httpCall
	return c
}

func (c *Client) httpCall(ctx context.Context, ep endpoint, params map[string]interface{}) (interface{}, error) {
	svc := c.httpClient.NewUtaBybitServiceWithParams(params)
	switch ep {
	case endpointInstrumentInfo:
		return svc.GetInstrumentInfo(ctx)
	default:
		return svc.GetMarketKline(ctx)
	}
}

// Category returns the product category requests are made for
func (c *Client) Category() string {
	return c.category
}

// GetEnvironment returns "testnet" or "mainnet"
func (c *Client) GetEnvironment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
