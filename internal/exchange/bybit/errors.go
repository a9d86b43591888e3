package bybit

import (
	"errors"
	"fmt"
	"net/http"
)

// BybitError is a non-zero retCode answer of the v5 API
type BybitError struct {
	Code    int
	Message string
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Bybit error codes the market endpoints return
const (
	ErrCodeInvalidAPIKey     = 10003
	ErrCodeInvalidSignature  = 10004
	ErrCodeRateLimitExceeded = 10006
	ErrCodeSymbolNotFound    = 10001
)

// IsRetryableError reports whether err is a Bybit answer worth repeating
func IsRetryableError(err error) bool {
	var bybitErr *BybitError
	if !errors.As(err, &bybitErr) {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeRateLimitExceeded,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ParseAPIError turns a non-zero return code into a BybitError
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return &BybitError{Code: retCode, Message: retMsg}
}
