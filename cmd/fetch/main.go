package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/cmd/common"
	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
	"github.com/ducminhle1904/signal-backtester/pkg/data"
)

const (
	flagSymbols = "symbols"
	flagRefresh = "refresh"
)

func main() {
	cmd := &cli.Command{
		Name:    "fetch",
		Usage:   "Download candles into the local cache",
		Version: common.GetFullVersion(),
		Flags: append(common.GlobalFlags(),
			&cli.StringSliceFlag{
				Name:    flagSymbols,
				Aliases: []string{"s"},
				Usage:   "Trading pairs to download (repeatable)",
				Value:   []string{"BTCUSDT"},
			},
			&cli.StringFlag{
				Name:    common.FlagInterval,
				Aliases: []string{"i"},
				Usage:   "Candle interval",
				Value:   config.DefaultInterval,
			},
			&cli.StringFlag{
				Name:    common.FlagPeriod,
				Aliases: []string{"p"},
				Usage:   "lastYear, lastMonth, a year like 2023 or a trailing window like 30d",
				Value:   config.DefaultRunPeriod,
			},
			&cli.StringFlag{
				Name:  common.FlagExchange,
				Usage: fmt.Sprintf("Market data source: %s", strings.Join(exchange.SupportedExchanges(), ", ")),
				Value: config.DefaultExchange,
			},
			&cli.StringFlag{
				Name:  common.FlagDataRoot,
				Usage: "Candle cache directory",
			},
			&cli.BoolFlag{
				Name:  common.FlagTestnet,
				Usage: "Use the exchange testnet",
			},
			&cli.BoolFlag{
				Name:  flagRefresh,
				Usage: "Download again even when the period is cached",
			},
		),
		Action: runFetch,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runFetch(ctx context.Context, cmd *cli.Command) error {
	env, logger, err := common.Setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := &config.RunConfig{
		Symbol:   "BTCUSDT",
		Interval: cmd.String(common.FlagInterval),
		Period:   cmd.String(common.FlagPeriod),
		DataRoot: cmd.String(common.FlagDataRoot),
		Exchange: exchange.Config{
			Name:    cmd.String(common.FlagExchange),
			Testnet: cmd.Bool(common.FlagTestnet),
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return err
	}
	env.Apply(cfg)

	ctx, cancel := common.SignalContext(ctx)
	defer cancel()

	dm, err := common.NewDataManager(cfg, logger, true)
	if err != nil {
		return err
	}
	store := data.NewFileStore(cfg.DataRoot)

	for _, raw := range cmd.StringSlice(flagSymbols) {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}

		n, path, err := fetchOne(ctx, dm, store, symbol, cfg, cmd.Bool(flagRefresh))
		if err != nil {
			return fmt.Errorf("%s: %w", symbol, err)
		}
		logger.Info("candles cached",
			zap.String("symbol", symbol),
			zap.String("interval", cfg.Interval),
			zap.String("period", cfg.Period),
			zap.Int("candles", n),
			zap.String("file", path),
		)
		fmt.Printf("%s %s %s: %d candles in %s\n", symbol, cfg.Interval, cfg.Period, n, path)
	}
	return nil
}

func fetchOne(ctx context.Context, dm *data.DataManager, store *data.FileStore, symbol string, cfg *config.RunConfig, refresh bool) (int, string, error) {
	if refresh {
		candles, path, err := dm.Refresh(ctx, symbol, cfg.Interval, cfg.Period)
		if err != nil {
			return 0, "", err
		}
		return len(candles), path, nil
	}

	candles, err := dm.Load(ctx, symbol, cfg.Interval, cfg.Period)
	if err != nil {
		return 0, "", err
	}
	if !store.Exists(symbol, cfg.Interval, cfg.Period) {
		// served from a matching file under the data root
		return len(candles), store.Root(), nil
	}
	return len(candles), store.Path(symbol, cfg.Interval, cfg.Period), nil
}
