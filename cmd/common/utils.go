package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/internal/logger"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
	"github.com/ducminhle1904/signal-backtester/pkg/data"
	"github.com/ducminhle1904/signal-backtester/pkg/reporting"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Setup loads the env file and builds the CLI logger. The --log-level flag wins over LOG_LEVEL.
func Setup(cmd *cli.Command) (config.Env, *zap.Logger, error) {
	env, err := config.LoadEnv(cmd.String(FlagEnv))
	if err != nil {
		return config.Env{}, nil, err
	}

	level := env.LogLevel
	if cmd.IsSet(FlagLogLevel) {
		level = cmd.String(FlagLogLevel)
	}
	log, err := logger.New(level)
	if err != nil {
		return config.Env{}, nil, err
	}
	return env, log, nil
}

// LoadRunConfig reads --config when given, otherwise starts from the defaults of
// --policy, then applies the flags and the environment and validates the result
func LoadRunConfig(cmd *cli.Command, mgr *config.Manager, env config.Env) (*config.RunConfig, error) {
	var cfg *config.RunConfig
	var err error
	if path := cmd.String(FlagConfig); path != "" {
		cfg, err = mgr.LoadRun(path)
	} else {
		cfg, err = config.NewDefaultRunConfig(cmd.String(FlagPolicy))
	}
	if err != nil {
		return nil, err
	}

	ApplyRunFlags(cmd, cfg)
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	env.Apply(cfg)

	if err := mgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReportingConfig maps the report block of a run to the reporting manager settings
func ReportingConfig(cfg *config.RunConfig) reporting.ReportingConfig {
	return reporting.ReportingConfig{
		EnableConsole:   cfg.Report.Wants(config.FormatConsole),
		OutputDirectory: cfg.Report.OutputDir,
		CSVEnabled:      cfg.Report.Wants(config.FormatCSV),
		ExcelEnabled:    cfg.Report.Wants(config.FormatXLSX),
		JSONEnabled:     cfg.Report.Wants(config.FormatJSON),
		TimeZone:        cfg.Report.TimeZone,
	}
}

// RunContext describes the run in report headers
func RunContext(cfg *config.RunConfig) reporting.RunContext {
	return reporting.RunContext{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Period:   cfg.Period,
		Exchange: cfg.Exchange.Name,
	}
}

// NewDataManager wires the candle cache under the data root to the configured exchange
func NewDataManager(cfg *config.RunConfig, log *zap.Logger, progress bool) (*data.DataManager, error) {
	md, err := exchange.New(cfg.Exchange, log)
	if err != nil {
		return nil, err
	}
	fetcher := data.NewFetcher(md,
		data.WithProgressBar(progress),
		data.WithFetchLogger(log),
	)
	return data.NewDataManager(data.NewFileStore(cfg.DataRoot), fetcher, log), nil
}

// LoadCandles reads --data-file when set, otherwise the cached or fetched period
func LoadCandles(ctx context.Context, cfg *config.RunConfig, dm *data.DataManager) ([]types.Candle, error) {
	if cfg.DataFile != "" {
		return dm.LoadFile(cfg.DataFile, cfg.Interval)
	}
	candles, err := dm.Load(ctx, cfg.Symbol, cfg.Interval, cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s %s: %w", cfg.Symbol, cfg.Interval, cfg.Period, err)
	}
	return candles, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
