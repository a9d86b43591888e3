package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/cmd/common"
	"github.com/ducminhle1904/signal-backtester/internal/backtest"
	"github.com/ducminhle1904/signal-backtester/internal/monitoring"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
	"github.com/ducminhle1904/signal-backtester/pkg/reporting"
)

const (
	flagWorkers     = "workers"
	flagRankBy      = "rank-by"
	flagTop         = "top"
	flagSaveBest    = "save-best"
	flagMetricsAddr = "metrics-addr"
)

func main() {
	cmd := &cli.Command{
		Name:    "sweep",
		Usage:   "Backtest every parameter combination of a grid and rank the results",
		Version: common.GetFullVersion(),
		Flags: append(common.RunFlags(),
			&cli.IntFlag{
				Name:    flagWorkers,
				Aliases: []string{"w"},
				Usage:   "Parallel backtests (default: number of CPUs)",
			},
			&cli.StringFlag{
				Name:  flagRankBy,
				Usage: "Leaderboard order: profit, winrate or sharpe",
			},
			&cli.IntFlag{
				Name:  flagTop,
				Usage: "Leaderboard size",
			},
			&cli.BoolFlag{
				Name:  flagSaveBest,
				Usage: "Write the best combination as a run config next to the reports",
				Value: true,
			},
			&cli.StringFlag{
				Name:  flagMetricsAddr,
				Usage: "Serve /metrics on this address while the sweep runs",
			},
		),
		Action: runSweep,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadSweepConfig(cmd *cli.Command, mgr *config.Manager, env config.Env) (*config.SweepConfig, error) {
	var cfg *config.SweepConfig
	var err error
	if path := cmd.String(common.FlagConfig); path != "" {
		cfg, err = mgr.LoadSweep(path)
	} else {
		cfg, err = config.NewDefaultSweepConfig(cmd.String(common.FlagPolicy))
	}
	if err != nil {
		return nil, err
	}

	variant := cfg.Run.Policy.Variant
	common.ApplyRunFlags(cmd, &cfg.Run)
	if cfg.Run.Policy.Variant != variant {
		// the axes of the old variant name parameters the new one does not have
		cfg.Axes = nil
	}
	if cmd.IsSet(flagWorkers) {
		cfg.Workers = int(cmd.Int(flagWorkers))
	}
	if cmd.IsSet(flagRankBy) {
		cfg.RankBy = cmd.String(flagRankBy)
	}
	if cmd.IsSet(flagTop) {
		cfg.Top = int(cmd.Int(flagTop))
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	env.Apply(&cfg.Run)

	if err := mgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSweep(ctx context.Context, cmd *cli.Command) error {
	env, logger, err := common.Setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := config.NewManager()
	cfg, err := loadSweepConfig(cmd, mgr, env)
	if err != nil {
		return err
	}
	run := &cfg.Run

	ctx, cancel := common.SignalContext(ctx)
	defer cancel()

	dm, err := common.NewDataManager(run, logger, true)
	if err != nil {
		return err
	}
	candles, err := common.LoadCandles(ctx, run, dm)
	if err != nil {
		return err
	}

	jobs, err := cfg.Grid().Jobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("grid of %s has no combinations", run.Policy.Variant)
	}

	metrics := monitoring.NewMetrics()
	if cmd.IsSet(flagMetricsAddr) {
		addr := cmd.String(flagMetricsAddr)
		go func() {
			if err := monitoring.Serve(ctx, addr, monitoring.NewRouter(nil, metrics), logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("starting sweep",
		zap.String("symbol", run.Symbol),
		zap.String("interval", run.Interval),
		zap.String("period", run.Period),
		zap.String("policy", run.Policy.Variant),
		zap.Int("candles", len(candles)),
		zap.Int("combinations", len(jobs)),
		zap.Int("workers", cfg.Workers),
	)

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription(fmt.Sprintf("Sweeping %s", run.Policy.Variant)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	tracker := backtest.NewProgressTracker(len(jobs))

	started := time.Now()
	results, err := backtest.RunSweep(ctx, candles, jobs, backtest.SweepOptions{
		Workers:        cfg.Workers,
		InitialBalance: run.Balance,
		Logger:         logger,
		OnResult: func(r backtest.SweepResult) {
			_ = bar.Add(1)
			tracker.Record(r)
			metrics.RecordSweepJob(r.Error)
			metrics.RecordRun(run.Policy.Variant, r.Duration, r.Error)
		},
	})
	_ = bar.Finish()
	if err != nil {
		logger.Warn("sweep interrupted", zap.Int("finished", len(results)), zap.Error(err))
	}

	completed, failed, total, _ := tracker.GetProgress()
	logger.Info("sweep finished",
		zap.Int("completed", completed),
		zap.Int("failed", failed),
		zap.Int("total", total),
		zap.Duration("elapsed", time.Since(started)),
	)

	by := backtest.Ranking(cfg.RankBy)
	ranked := backtest.Rank(results, by)
	if len(ranked) == 0 {
		return fmt.Errorf("no combination produced a result (%d failed)", failed)
	}

	rm, err := reporting.NewReportingManager(common.ReportingConfig(run))
	if err != nil {
		return err
	}
	runCtx := common.RunContext(run)

	written, err := rm.ReportSweep(ranked, runCtx, cfg.Top, by)
	if err != nil {
		return fmt.Errorf("failed to write leaderboard: %w", err)
	}
	best := ranked[0]
	logger.Info("best combination", zap.String("params", best.Job.Label), zap.Float64("profit_pct", best.Result.Summary.ProfitPct))

	files, err := rm.ReportResults(best.Result, runCtx)
	if err != nil {
		return fmt.Errorf("failed to write best result: %w", err)
	}
	written = append(written, files...)

	if cmd.Bool(flagSaveBest) {
		bestRun := *run
		bestRun.Policy = best.Job.Config
		path := filepath.Join(reporting.DefaultOutputDir(run.Report.OutputDir, run.Symbol, run.Interval), config.BestConfigFile)
		if err := mgr.SaveConfig(&bestRun, path); err != nil {
			return err
		}
		written = append(written, path)
	}

	for _, path := range written {
		logger.Info("report written", zap.String("file", path))
	}
	return nil
}
