package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/cmd/common"
	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/internal/live"
	"github.com/ducminhle1904/signal-backtester/internal/logger"
	"github.com/ducminhle1904/signal-backtester/internal/monitoring"
	"github.com/ducminhle1904/signal-backtester/internal/notifications"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
	"github.com/ducminhle1904/signal-backtester/pkg/reporting"
)

const (
	flagWindow      = "window"
	flagMetricsAddr = "metrics-addr"
	flagLogDir      = "log-dir"
)

func main() {
	cmd := &cli.Command{
		Name:    "live",
		Usage:   "Paper trade one strategy variant on closed candles as they arrive",
		Version: common.GetFullVersion(),
		Flags: append(common.RunFlags(),
			&cli.IntFlag{
				Name:  flagWindow,
				Usage: "Candles kept for indicator warm-up",
				Value: live.DefaultWindowSize,
			},
			&cli.StringFlag{
				Name:  flagMetricsAddr,
				Usage: "Address for /healthz and /metrics (default from METRICS_ADDR, empty disables)",
			},
			&cli.StringFlag{
				Name:  flagLogDir,
				Usage: "Directory of the session log file",
				Value: "logs",
			},
		),
		Action: runLive,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runLive(ctx context.Context, cmd *cli.Command) error {
	env, cliLog, err := common.Setup(cmd)
	if err != nil {
		return err
	}
	defer cliLog.Sync()

	cfg, err := common.LoadRunConfig(cmd, config.NewManager(), env)
	if err != nil {
		return err
	}
	policy, err := strategy.New(cfg.Policy)
	if err != nil {
		return err
	}
	step, err := exchange.ParseInterval(cfg.Interval)
	if err != nil {
		return err
	}

	ctx, cancel := common.SignalContext(ctx)
	defer cancel()

	level := env.LogLevel
	if cmd.IsSet(common.FlagLogLevel) {
		level = cmd.String(common.FlagLogLevel)
	}
	sessionLog, err := logger.NewLoggerWithConfig(cfg.Symbol, cfg.Interval, logger.Config{
		Dir:     cmd.String(flagLogDir),
		Level:   level,
		Console: true,
	})
	if err != nil {
		return err
	}
	defer sessionLog.Close()

	md, err := exchange.New(cfg.Exchange, sessionLog.Logger)
	if err != nil {
		return err
	}

	opts := []live.SessionOption{
		live.WithWindowSize(int(cmd.Int(flagWindow))),
		live.WithSessionLogger(sessionLog.Logger),
	}
	if info, err := md.Instrument(ctx, cfg.Symbol); err != nil {
		sessionLog.Warn("instrument filters unavailable, orders are not rounded", zap.Error(err))
	} else {
		opts = append(opts, live.WithInstrument(live.NewInstrument(info)))
	}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(3 * step)
	var sink live.SignalSink = live.NewLogSink(sessionLog.Logger, metrics)
	if env.Notifies() {
		notifier := notifications.NewTelegramNotifier(env.TelegramToken, env.TelegramChatID,
			notifications.WithTitle(fmt.Sprintf("%s %s %s", cfg.Symbol, cfg.Interval, policy.Name())))
		sink = live.NewNotifySink(sink, notifier, sessionLog.Logger)
	}
	opts = append(opts, live.WithSink(sink))
	session := live.NewSession(cfg.Symbol, policy, cfg.Balance, opts...)

	var stream live.CandleStream
	if bc, ok := md.(*exchange.BinanceClient); ok {
		stream = bc.Stream(cfg.Symbol, cfg.Interval)
	} else {
		stream, err = live.NewPollingStream(md, cfg.Symbol, cfg.Interval, sessionLog.Logger)
		if err != nil {
			return err
		}
	}

	feed, err := live.NewFeed(session, md, stream, cfg.Interval,
		live.WithSeedSize(int(cmd.Int(flagWindow))),
		live.WithMonitoring(health, metrics),
		live.WithFeedLogger(sessionLog.Logger),
	)
	if err != nil {
		return err
	}

	addr := env.MetricsAddr
	if cmd.IsSet(flagMetricsAddr) {
		addr = cmd.String(flagMetricsAddr)
	}
	if addr != "" {
		go func() {
			if err := monitoring.Serve(ctx, addr, monitoring.NewRouter(health, metrics), sessionLog.Logger); err != nil {
				sessionLog.LogError("monitoring server", err)
			}
		}()
	}

	sessionLog.Status("paper session started",
		zap.String("exchange", md.Name()),
		zap.String("policy", policy.Name()),
		zap.Float64("balance", cfg.Balance),
		zap.String("log_file", sessionLog.GetLogPath()),
	)
	started := time.Now()

	if err := feed.Run(ctx); err != nil {
		return fmt.Errorf("live feed: %w", err)
	}

	sessionLog.Status("paper session stopped", zap.Duration("uptime", time.Since(started)))
	loc, err := reporting.LoadLocation(cfg.Report.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	reporting.NewConsoleReporter(os.Stdout, loc).OutputResults(session.Result(), common.RunContext(cfg))
	return nil
}
