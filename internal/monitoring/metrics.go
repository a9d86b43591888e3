package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of backtests, sweeps and live sessions
type Metrics struct {
	gatherer prometheus.Gatherer

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	tradesTotal  *prometheus.CounterVec
	tradePnL     *prometheus.HistogramVec
	rejections   *prometheus.CounterVec
	sweepJobs    *prometheus.CounterVec
	currentPrice *prometheus.GaugeVec
	positionSide *prometheus.GaugeVec
	balance      *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_backtester_runs_total",
				Help: "Total number of backtest runs",
			},
			[]string{"policy", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_backtester_run_duration_seconds",
				Help:    "Wall time of a single backtest run",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"policy"},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_backtester_trades_total",
				Help: "Total number of closed trades",
			},
			[]string{"symbol", "side", "result", "exit_reason"},
		),
		tradePnL: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_backtester_trade_profit_pct",
				Help:    "Distribution of the side-signed price move of closed trades in percent",
				Buckets: []float64{-10, -5, -3, -2, -1, -0.5, 0, 0.5, 1, 2, 3, 5, 10},
			},
			[]string{"symbol"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_backtester_entry_rejections_total",
				Help: "Entry signals rejected by position sizing",
			},
			[]string{"symbol", "reason"},
		),
		sweepJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_backtester_sweep_jobs_total",
				Help: "Finished sweep jobs",
			},
			[]string{"status"},
		),
		currentPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_backtester_live_price",
				Help: "Close of the latest live candle",
			},
			[]string{"symbol"},
		),
		positionSide: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_backtester_live_position_side",
				Help: "Side of the live paper position: 1 long, -1 short, 0 flat",
			},
			[]string{"symbol"},
		),
		balance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_backtester_live_balance",
				Help: "Balance of the live paper session",
			},
			[]string{"symbol"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_backtester_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.tradesTotal,
		m.tradePnL,
		m.rejections,
		m.sweepJobs,
		m.currentPrice,
		m.positionSide,
		m.balance,
		m.errorsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mostly for tests
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// RecordRun records a finished backtest run
func (m *Metrics) RecordRun(policy string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(policy, status).Inc()
	m.runDuration.WithLabelValues(policy).Observe(elapsed.Seconds())
}

// RecordTrade records a closed trade
func (m *Metrics) RecordTrade(symbol, side, result, exitReason string, profitPct float64) {
	m.tradesTotal.WithLabelValues(symbol, side, result, exitReason).Inc()
	m.tradePnL.WithLabelValues(symbol).Observe(profitPct)
}

// AddRejections adds n rejected entries for the reason
func (m *Metrics) AddRejections(symbol, reason string, n int) {
	if n <= 0 {
		return
	}
	m.rejections.WithLabelValues(symbol, reason).Add(float64(n))
}

// RecordSweepJob records a finished sweep job
func (m *Metrics) RecordSweepJob(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sweepJobs.WithLabelValues(status).Inc()
}

// UpdatePrice updates the current price metric
func (m *Metrics) UpdatePrice(symbol string, price float64) {
	m.currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdatePosition sets the side gauge from the side sign
func (m *Metrics) UpdatePosition(symbol string, sign float64) {
	m.positionSide.WithLabelValues(symbol).Set(sign)
}

// UpdateBalance updates the paper balance gauge
func (m *Metrics) UpdateBalance(symbol string, balance float64) {
	m.balance.WithLabelValues(symbol).Set(balance)
}

// RecordError records an error metric
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.WithLabelValues(errorType).Inc()
}
