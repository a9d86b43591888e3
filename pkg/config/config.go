package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
)

// Report output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
)

// RunConfig describes one backtest: the candles to load, the starting balance and the policy
type RunConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol" jsonschema:"title=Symbol,description=Trading pair such as BTCUSDT,required" validate:"required,alphanum"`
	Interval string `json:"interval" yaml:"interval" jsonschema:"title=Interval,description=Candle interval such as 3m or 1h,default=3m" validate:"required,interval"`
	Period   string `json:"period" yaml:"period" jsonschema:"title=Period,description=lastYear or lastMonth or a calendar year or a trailing duration like 30d,default=lastYear" validate:"required,period"`

	// DataFile bypasses the data cache and reads candles from a JSON or CSV file
	DataFile string  `json:"dataFile,omitempty" yaml:"dataFile,omitempty" jsonschema:"title=Data File,description=Optional JSON or CSV candle file used instead of the cache"`
	DataRoot string  `json:"dataRoot,omitempty" yaml:"dataRoot,omitempty" jsonschema:"title=Data Root,description=Directory of the candle cache,default=data"`
	Balance  float64 `json:"balance" yaml:"balance" jsonschema:"title=Initial Balance,description=Starting balance in quote currency,minimum=0,default=1000" validate:"gt=0"`

	Exchange exchange.Config `json:"exchange" yaml:"exchange" jsonschema:"title=Exchange,description=Market data source for candles that are not cached"`
	Policy   strategy.Config `json:"policy" yaml:"policy" jsonschema:"title=Policy,description=Strategy variant and its parameters,required"`
	Report   ReportConfig    `json:"report" yaml:"report" jsonschema:"title=Report,description=Where and how results are written"`
}

// ReportConfig selects the report outputs
type ReportConfig struct {
	OutputDir string   `json:"outputDir,omitempty" yaml:"outputDir,omitempty" jsonschema:"title=Output Directory,default=results"`
	Formats   []string `json:"formats,omitempty" yaml:"formats,omitempty" jsonschema:"title=Formats,description=Any of console json csv xlsx" validate:"dive,oneof=console json csv xlsx"`
	TimeZone  string   `json:"timeZone,omitempty" yaml:"timeZone,omitempty" jsonschema:"title=Time Zone,description=IANA zone used to print trade times,default=Europe/Berlin" validate:"omitempty,timezone"`
}

// Wants reports whether the format is enabled
func (r ReportConfig) Wants(format string) bool {
	for _, f := range r.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// SweepConfig runs every combination of the axes on top of Run.Policy
type SweepConfig struct {
	Run     RunConfig       `json:"run" yaml:"run" jsonschema:"title=Run,description=Base run whose policy block every combination starts from,required"`
	Axes    []backtest.Axis `json:"axes" yaml:"axes" jsonschema:"title=Axes,description=Swept parameters named by their key in the policy block" validate:"dive"`
	Workers int             `json:"workers,omitempty" yaml:"workers,omitempty" jsonschema:"title=Workers,description=Parallel runs; 0 uses every CPU,minimum=0" validate:"gte=0"`
	RankBy  string          `json:"rankBy,omitempty" yaml:"rankBy,omitempty" jsonschema:"title=Rank By,enum=profit,enum=winrate,enum=sharpe,default=profit" validate:"omitempty,oneof=profit winrate sharpe"`
	Top     int             `json:"top,omitempty" yaml:"top,omitempty" jsonschema:"title=Top,description=Number of results kept in the leaderboard,default=10" validate:"gte=0"`
}

// Grid returns the sweep grid
func (s *SweepConfig) Grid() backtest.Grid {
	return backtest.Grid{Base: s.Run.Policy, Axes: s.Axes}
}

// NewDefaultRunConfig returns a run of the variant on BTCUSDT with every default filled in
func NewDefaultRunConfig(variant string) (*RunConfig, error) {
	cfg := &RunConfig{
		Symbol: "BTCUSDT",
		Policy: strategy.Config{Variant: variant},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewDefaultSweepConfig returns a sweep of the variant over its default grid
func NewDefaultSweepConfig(variant string) (*SweepConfig, error) {
	cfg := &SweepConfig{
		Run: RunConfig{
			Symbol: "BTCUSDT",
			Policy: strategy.Config{Variant: variant},
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields; the policy block of the selected variant is
// created when missing
func (c *RunConfig) ApplyDefaults() error {
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.Period == "" {
		c.Period = DefaultRunPeriod
	}
	if c.DataRoot == "" {
		c.DataRoot = DefaultDataRoot
	}
	if c.Balance == 0 {
		c.Balance = DefaultInitialBalance
	}
	if c.Exchange.Name == "" {
		c.Exchange.Name = DefaultExchange
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = ResultsDir
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{FormatConsole}
	}
	if c.Report.TimeZone == "" {
		c.Report.TimeZone = DefaultTimeZone
	}
	if err := c.Policy.ApplyDefaults(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// ApplyDefaults fills the base run, the default grid of the variant when no axes are
// given, the worker count and the ranking
func (s *SweepConfig) ApplyDefaults() error {
	if s.Run.Period == "" {
		s.Run.Period = DefaultSweepPeriod
	}
	if err := s.Run.ApplyDefaults(); err != nil {
		return err
	}
	if len(s.Axes) == 0 {
		s.Axes = DefaultAxes(s.Run.Policy.Variant)
	}
	if s.Workers == 0 {
		s.Workers = runtime.NumCPU()
	}
	if s.RankBy == "" {
		s.RankBy = string(backtest.RankByProfit)
	}
	if s.Top == 0 {
		s.Top = DefaultTopResults
	}
	return nil
}

// DefaultAxes returns the grid swept when a sweep file names none
func DefaultAxes(variant string) []backtest.Axis {
	switch variant {
	case strategy.VariantMeanReversionTP:
		return []backtest.Axis{
			{Param: "rsiPeriod", Values: []float64{14}},
			{Param: "adxPeriod", Values: []float64{21}},
			{Param: "rsiBuy", Values: []float64{20, 25, 30}},
			{Param: "rsiSell", Values: []float64{70, 75, 80}},
			{Param: "adxThreshold", Values: []float64{20, 25, 30}},
			{Param: "stopPct", Values: []float64{1, 1.5, 2}},
			{Param: "takeProfitPct", Values: []float64{2, 3, 4}},
		}
	case strategy.VariantFixedCrossover:
		return []backtest.Axis{
			{Param: "fastPeriod", Values: []float64{5, 7, 9}},
			{Param: "slowPeriod", Values: []float64{21, 25, 30}},
			{Param: "stopAtrMult", Values: []float64{1, 1.5, 2}},
		}
	case strategy.VariantRiskSizedTrailing:
		return []backtest.Axis{
			{Param: "fastPeriod", Values: []float64{5, 7, 9}},
			{Param: "slowPeriod", Values: []float64{21, 25, 30}},
			{Param: "riskPct", Values: []float64{1, 2, 3}},
			{Param: "trailGapPct", Values: []float64{0.5, 1}},
		}
	case strategy.VariantAdaptiveRegime:
		return []backtest.Axis{
			{Param: "adxTrendThreshold", Values: []float64{25, 30}},
			{Param: "adxRangeThreshold", Values: []float64{15, 20}},
			{Param: "lowPercentile", Values: []float64{5, 10, 15}},
			{Param: "highPercentile", Values: []float64{85, 90, 95}},
		}
	default:
		return nil
	}
}
