package bybit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/ducminhle1904/signal-backtester/internal/errors"
)

// RetryConfig is the backoff policy for market requests. A history download
// issues hundreds of kline pages, so rate limit answers are waited out.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// SetRetryConfig replaces the retry policy of the client
func (c *Client) SetRetryConfig(config RetryConfig) {
	c.retry = config
}

// Retry executes fn with the client's retry policy
func (c *Client) Retry(ctx context.Context, fn func() error) error {
	return RetryWithConfig(ctx, fn, c.retry)
}

// RetryWithConfig executes fn until it succeeds, fails with a permanent error
// or the attempts run out
func RetryWithConfig(ctx context.Context, fn func() error, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries || !isRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateDelay(attempt, config)):
		}
	}

	return lastErr
}

// isRetryable accepts rate limits, gateway failures and transient network errors
func isRetryable(err error) bool {
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		return IsRetryableError(err)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch apperrors.CategorizeError(err, "bybit", "request").Category {
	case apperrors.ErrorCategoryNetwork, apperrors.ErrorCategoryTimeout, apperrors.ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// calculateDelay calculates the delay for a retry attempt with exponential backoff
func calculateDelay(attempt int, config RetryConfig) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterEnabled {
		jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
		delay += jitter
	}

	return delay
}
