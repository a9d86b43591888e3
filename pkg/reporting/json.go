package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// resultDocument is the JSON layout of a saved run
type resultDocument struct {
	Run    RunContext               `json:"run"`
	Result *backtest.BacktestResult `json:"result"`
}

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct{}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

// FormatResult encodes a run and its result as indented JSON
func (f *DefaultJSONFormatter) FormatResult(result *backtest.BacktestResult, run RunContext) ([]byte, error) {
	return json.MarshalIndent(resultDocument{Run: run, Result: result}, "", "  ")
}

// WriteResultJSON writes the run and result to path
func (f *DefaultJSONFormatter) WriteResultJSON(result *backtest.BacktestResult, run RunContext, path string) error {
	data, err := f.FormatResult(result, run)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PrintJSON writes v as indented JSON to w
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
