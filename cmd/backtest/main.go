package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/cmd/common"
	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
	"github.com/ducminhle1904/signal-backtester/pkg/reporting"
)

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Replay cached or fetched candles through one strategy variant",
		Version: common.GetFullVersion(),
		Flags: append(common.RunFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the result document to stdout instead of the console tables",
			},
		),
		Action: runBacktest,
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "Print the JSON schema of run config files",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sweep", Usage: "Print the sweep config schema instead"},
				},
				Action: printSchema,
			},
			{
				Name:      "init",
				Usage:     "Write a run config with every default filled in",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  common.FlagPolicy,
						Usage: "Strategy variant",
						Value: strategy.VariantFixedCrossover,
					},
				},
				Action: writeDefaultConfig,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runBacktest(ctx context.Context, cmd *cli.Command) error {
	env, logger, err := common.Setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := config.NewManager()
	cfg, err := common.LoadRunConfig(cmd, mgr, env)
	if err != nil {
		return err
	}

	ctx, cancel := common.SignalContext(ctx)
	defer cancel()

	dm, err := common.NewDataManager(cfg, logger, true)
	if err != nil {
		return err
	}
	candles, err := common.LoadCandles(ctx, cfg, dm)
	if err != nil {
		return err
	}

	policy, err := strategy.New(cfg.Policy)
	if err != nil {
		return errors.NewConfigurationError("backtest", "build_policy", err.Error())
	}

	logger.Info("starting backtest",
		zap.String("symbol", cfg.Symbol),
		zap.String("interval", cfg.Interval),
		zap.String("period", cfg.Period),
		zap.String("policy", policy.Name()),
		zap.String("sizer", policy.Sizer().Name()),
		zap.Int("candles", len(candles)),
		zap.Float64("balance", cfg.Balance),
	)

	engine := backtest.NewBacktestEngine(cfg.Balance, policy, backtest.WithLogger(logger))
	started := time.Now()
	result, err := engine.Simulate(candles)
	if err != nil {
		if stderrors.Is(err, errors.ErrDataInsufficient) && result != nil {
			logger.Warn("not enough candles for the indicator warm-up", zap.Error(err))
		} else {
			return err
		}
	}

	run := common.RunContext(cfg)
	if cmd.Bool("json") {
		return reporting.PrintJSON(os.Stdout, struct {
			Run    reporting.RunContext      `json:"run"`
			Result *backtest.BacktestResult `json:"result"`
		}{run, result})
	}

	rm, err := reporting.NewReportingManager(common.ReportingConfig(cfg))
	if err != nil {
		return err
	}
	written, err := rm.ReportResults(result, run)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	for _, path := range written {
		logger.Info("report written", zap.String("file", path))
	}

	logger.Info("backtest done", zap.Duration("elapsed", time.Since(started)))
	return nil
}

func printSchema(_ context.Context, cmd *cli.Command) error {
	schema := config.RunSchema()
	if cmd.Bool("sweep") {
		schema = config.SweepSchema()
	}
	return config.WriteSchema(os.Stdout, schema)
}

func writeDefaultConfig(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: backtest init FILE")
	}
	cfg, err := config.NewDefaultRunConfig(cmd.String(common.FlagPolicy))
	if err != nil {
		return err
	}
	if err := config.NewManager().SaveConfig(cfg, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s config to %s\n", cfg.Policy.Variant, path)
	return nil
}
