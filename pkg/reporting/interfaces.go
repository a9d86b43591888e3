package reporting

import (
	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// Package reporting renders backtest and sweep results to the console and to files

// RunContext names what a result was computed on
type RunContext struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Period   string `json:"period"`
	Exchange string `json:"exchange,omitempty"`
}

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(result *backtest.BacktestResult, run RunContext)
	OutputLeaderboard(ranked []backtest.SweepResult, top int, by backtest.Ranking)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(result *backtest.BacktestResult, path string) error
	WriteTradesXLSX(result *backtest.BacktestResult, run RunContext, path string) error
	WriteResultJSON(result *backtest.BacktestResult, run RunContext, path string) error
	WriteLeaderboardCSV(ranked []backtest.SweepResult, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(root, symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle       int
	TitleStyle        int
	CurrencyStyle     int
	PriceStyle        int
	PercentStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	CSVEnabled      bool
	ExcelEnabled    bool
	JSONEnabled     bool
	// TimeZone is the IANA zone trade times are printed in; empty means UTC
	TimeZone string
}

var _ Reporter = (*DefaultReporter)(nil)

