package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
)

// Sentinel errors checked with errors.Is through any wrapping
var (
	// ErrDataInsufficient means fewer candles than the warm-up requires
	ErrDataInsufficient = stderrors.New("insufficient data")
	// ErrInvalidStop means the stop sits on the wrong side of entry or at entry
	ErrInvalidStop = stderrors.New("invalid stop distance")
	// ErrMarginExceeded means the required margin exceeds the balance even at max leverage
	ErrMarginExceeded = stderrors.New("margin exceeds balance")
	// ErrMalformedData means candles are unordered, duplicated or carry bad prices
	ErrMalformedData = stderrors.New("malformed candle data")
	// ErrIndicatorMisaligned means a series is longer than the candle slice it belongs to
	ErrIndicatorMisaligned = stderrors.New("indicator series longer than candles")
)

// ErrorCategory groups errors by the layer they come from
type ErrorCategory string

const (
	// Errors that abort a run
	ErrorCategoryData          ErrorCategory = "DATA"
	ErrorCategoryIndicator     ErrorCategory = "INDICATOR"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"

	// Errors local to one entry attempt
	ErrorCategorySizing   ErrorCategory = "SIZING"
	ErrorCategoryStrategy ErrorCategory = "STRATEGY"

	// Collaborator errors that may be retried
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
	ErrorCategoryExchange  ErrorCategory = "EXCHANGE"
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"
)

// BacktestError is a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BacktestError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should abort the run
func (e *BacktestError) IsFatal() bool {
	switch e.Category {
	case ErrorCategoryData, ErrorCategoryIndicator, ErrorCategoryConfiguration, ErrorCategoryCredentials:
		return true
	default:
		return false
	}
}

// New creates a new categorized error
func New(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with category context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithMessage replaces the message
func (e *BacktestError) WithMessage(message string) *BacktestError {
	e.Message = message
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// CategorizeError attempts to categorize a collaborator error
func CategorizeError(err error, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	var existing *BacktestError
	if stderrors.As(err, &existing) {
		return existing
	}

	switch {
	case stderrors.Is(err, ErrDataInsufficient), stderrors.Is(err, ErrMalformedData):
		return WrapError(err, ErrorCategoryData, component, operation)
	case stderrors.Is(err, ErrInvalidStop), stderrors.Is(err, ErrMarginExceeded):
		return WrapError(err, ErrorCategorySizing, component, operation)
	case stderrors.Is(err, ErrIndicatorMisaligned):
		return WrapError(err, ErrorCategoryIndicator, component, operation)
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "unauthorized") {
		return WrapError(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") ||
		strings.Contains(errMsg, "-1003") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

// NewDataError wraps err as a data error
func NewDataError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

// NewSizingError wraps err as an entry sizing rejection
func NewSizingError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategorySizing, component, operation)
}

// NewConfigurationError reports an invalid setting
func NewConfigurationError(component, operation, message string) *BacktestError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

// NewExchangeError wraps a candle source failure
func NewExchangeError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryExchange, component, operation)
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu               sync.Mutex
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BacktestError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BacktestError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BacktestError) {
	if err == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// Count returns the number of recorded errors of a category
func (es *ErrorStats) Count(category ErrorCategory) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.ErrorsByCategory[category]
}

// Recent returns a copy of the most recent errors
func (es *ErrorStats) Recent() []*BacktestError {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]*BacktestError, len(es.RecentErrors))
	copy(out, es.RecentErrors)
	return out
}
