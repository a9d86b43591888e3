package common

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
)

// Flag names shared by the commands
const (
	FlagEnv       = "env"
	FlagLogLevel  = "log-level"
	FlagConfig    = "config"
	FlagSymbol    = "symbol"
	FlagInterval  = "interval"
	FlagPeriod    = "period"
	FlagPolicy    = "policy"
	FlagBalance   = "balance"
	FlagDataFile  = "data-file"
	FlagDataRoot  = "data-root"
	FlagExchange  = "exchange"
	FlagTestnet   = "testnet"
	FlagOutputDir = "output-dir"
	FlagFormat    = "format"
	FlagTimeZone  = "tz"
)

// GlobalFlags are accepted by every command
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  FlagEnv,
			Usage: "Environment file with API keys and DATA_ROOT",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  FlagLogLevel,
			Usage: "Log level: debug, info, warn or error (default from LOG_LEVEL)",
		},
	}
}

// RunFlags select the candles and the policy of a run. Every flag overrides the config file.
func RunFlags() []cli.Flag {
	return append(GlobalFlags(),
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "Run config file (`FILE`, .yaml or .json)",
		},
		&cli.StringFlag{
			Name:    FlagSymbol,
			Aliases: []string{"s"},
			Usage:   "Trading pair, e.g. BTCUSDT",
		},
		&cli.StringFlag{
			Name:    FlagInterval,
			Aliases: []string{"i"},
			Usage:   "Candle interval, e.g. 3m or 1h",
		},
		&cli.StringFlag{
			Name:    FlagPeriod,
			Aliases: []string{"p"},
			Usage:   "lastYear, lastMonth, a year like 2023 or a trailing window like 30d",
		},
		&cli.StringFlag{
			Name:  FlagPolicy,
			Usage: fmt.Sprintf("Strategy variant: %s", strings.Join(strategy.Variants(), ", ")),
			Value: strategy.VariantFixedCrossover,
		},
		&cli.FloatFlag{
			Name:    FlagBalance,
			Aliases: []string{"b"},
			Usage:   "Initial balance in quote currency",
		},
		&cli.StringFlag{
			Name:  FlagDataFile,
			Usage: "Read candles from a JSON or CSV `FILE` instead of the cache",
		},
		&cli.StringFlag{
			Name:  FlagDataRoot,
			Usage: "Candle cache directory",
		},
		&cli.StringFlag{
			Name:  FlagExchange,
			Usage: "Market data source for uncached candles: binance or bybit",
		},
		&cli.BoolFlag{
			Name:  FlagTestnet,
			Usage: "Use the exchange testnet",
		},
		&cli.StringFlag{
			Name:    FlagOutputDir,
			Aliases: []string{"o"},
			Usage:   "Directory for report files",
		},
		&cli.StringSliceFlag{
			Name:    FlagFormat,
			Aliases: []string{"f"},
			Usage:   "Report formats: console, json, csv, xlsx (repeatable)",
		},
		&cli.StringFlag{
			Name:  FlagTimeZone,
			Usage: "IANA time zone for trade times, e.g. Europe/Berlin",
		},
	)
}

// ApplyRunFlags copies the flags the user set onto cfg. Selecting a different
// policy variant replaces the policy block with that variant's defaults.
func ApplyRunFlags(cmd *cli.Command, cfg *config.RunConfig) {
	if cmd.IsSet(FlagSymbol) {
		cfg.Symbol = cmd.String(FlagSymbol)
	}
	if cmd.IsSet(FlagInterval) {
		cfg.Interval = cmd.String(FlagInterval)
	}
	if cmd.IsSet(FlagPeriod) {
		cfg.Period = cmd.String(FlagPeriod)
	}
	if cmd.IsSet(FlagPolicy) && cmd.String(FlagPolicy) != cfg.Policy.Variant {
		cfg.Policy = strategy.Config{Variant: cmd.String(FlagPolicy)}
	}
	if cmd.IsSet(FlagBalance) {
		cfg.Balance = cmd.Float(FlagBalance)
	}
	if cmd.IsSet(FlagDataFile) {
		cfg.DataFile = cmd.String(FlagDataFile)
	}
	if cmd.IsSet(FlagDataRoot) {
		cfg.DataRoot = cmd.String(FlagDataRoot)
	}
	if cmd.IsSet(FlagExchange) {
		cfg.Exchange.Name = cmd.String(FlagExchange)
	}
	if cmd.IsSet(FlagTestnet) {
		cfg.Exchange.Testnet = cmd.Bool(FlagTestnet)
	}
	if cmd.IsSet(FlagOutputDir) {
		cfg.Report.OutputDir = cmd.String(FlagOutputDir)
	}
	if cmd.IsSet(FlagFormat) {
		cfg.Report.Formats = cmd.StringSlice(FlagFormat)
	}
	if cmd.IsSet(FlagTimeZone) {
		cfg.Report.TimeZone = cmd.String(FlagTimeZone)
	}
}
