package reporting

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a reporter printing to stdout with times in loc
func NewDefaultReporter(loc *time.Location) *DefaultReporter {
	return &DefaultReporter{
		console: NewConsoleReporter(os.Stdout, loc),
		csv:     NewDefaultCSVReporter(loc),
		excel:   NewDefaultExcelReporter(loc),
		json:    NewDefaultJSONFormatter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(result *backtest.BacktestResult, run RunContext) {
	r.console.OutputResults(result, run)
}

func (r *DefaultReporter) OutputLeaderboard(ranked []backtest.SweepResult, top int, by backtest.Ranking) {
	r.console.OutputLeaderboard(ranked, top, by)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(result *backtest.BacktestResult, path string) error {
	return r.csv.WriteTradesCSV(result, path)
}

func (r *DefaultReporter) WriteTradesXLSX(result *backtest.BacktestResult, run RunContext, path string) error {
	return r.excel.WriteTradesXLSX(result, run, path)
}

func (r *DefaultReporter) WriteResultJSON(result *backtest.BacktestResult, run RunContext, path string) error {
	return r.json.WriteResultJSON(result, run, path)
}

func (r *DefaultReporter) WriteLeaderboardCSV(ranked []backtest.SweepResult, path string) error {
	return r.csv.WriteLeaderboardCSV(ranked, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(root, symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(root, symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter Reporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) (*ReportingManager, error) {
	loc, err := LoadLocation(config.TimeZone)
	if err != nil {
		return nil, err
	}
	return &ReportingManager{
		reporter: NewDefaultReporter(loc),
		config:   config,
	}, nil
}

// NewReportingManagerWith uses a custom reporter, e.g. one writing to a buffer
func NewReportingManagerWith(reporter Reporter, config ReportingConfig) *ReportingManager {
	return &ReportingManager{reporter: reporter, config: config}
}

// ReportResults outputs results according to configuration and returns the files written
func (m *ReportingManager) ReportResults(result *backtest.BacktestResult, run RunContext) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(result, run)
	}

	outputDir := m.reporter.GetDefaultOutputDir(m.config.OutputDirectory, run.Symbol, run.Interval)
	var written []string

	if m.config.CSVEnabled {
		path := filepath.Join(outputDir, TradesCSVFile)
		if err := m.reporter.WriteTradesCSV(result, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.ExcelEnabled {
		path := filepath.Join(outputDir, TradesXLSXFile)
		if err := m.reporter.WriteTradesXLSX(result, run, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if m.config.JSONEnabled {
		path := filepath.Join(outputDir, ResultJSONFile)
		if err := m.reporter.WriteResultJSON(result, run, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// ReportSweep prints the leaderboard and writes it as CSV when files are enabled
func (m *ReportingManager) ReportSweep(ranked []backtest.SweepResult, run RunContext, top int, by backtest.Ranking) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputLeaderboard(ranked, top, by)
	}

	if !m.config.CSVEnabled && !m.config.ExcelEnabled && !m.config.JSONEnabled {
		return nil, nil
	}

	path := filepath.Join(m.reporter.GetDefaultOutputDir(m.config.OutputDirectory, run.Symbol, run.Interval), LeaderboardCSVFile)
	if err := m.reporter.WriteLeaderboardCSV(ranked, path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}
