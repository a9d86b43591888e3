package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// DefaultConsoleReporter renders results as tables
type DefaultConsoleReporter struct {
	out io.Writer
	loc *time.Location
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout in UTC
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: os.Stdout, loc: time.UTC}
}

// NewConsoleReporter creates a console reporter writing to out, times shown in loc
func NewConsoleReporter(out io.Writer, loc *time.Location) *DefaultConsoleReporter {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultConsoleReporter{out: out, loc: loc}
}

// OutputResults prints the summary, the exit and regime breakdowns, rejections and any open position
func (r *DefaultConsoleReporter) OutputResults(result *backtest.BacktestResult, run RunContext) {
	s := result.Summary

	t := r.newTable(fmt.Sprintf("BACKTEST RESULTS | %s %s %s", run.Symbol, run.Interval, run.Period))
	t.AppendRows([]table.Row{
		{"📊 Policy", result.Policy},
		{"🕯️ Candles", fmt.Sprintf("%d (from #%d)", result.Candles, result.Start)},
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", result.BalanceStart)},
		{"💰 Final Balance", fmt.Sprintf("$%.2f", result.BalanceEnd)},
		{"📈 Profit", fmt.Sprintf("%.2f%% ($%.2f)", s.ProfitPct, s.NetPnL)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Trades", fmt.Sprintf("%d (long %d / short %d)", s.Total, s.Longs, s.Shorts)},
		{"✅ Wins", s.Wins},
		{"❌ Losses", s.Losses},
		{"➖ Nulls", s.Nulls},
		{"🎯 Win Rate", formatRate(s.WinRate)},
		{"📊 Avg Trade", formatRate(s.AvgTradePct)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"💹 Profit Factor", formatRatio(s.ProfitFactor)},
		{"📉 Max Drawdown", formatRate(s.MaxDrawdown * 100)},
		{"📊 Sharpe Ratio", formatRatio(s.SharpeRatio)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 24, Align: text.AlignRight},
	})
	t.Render()

	reasons := r.newTable("EXITS")
	reasons.AppendHeader(table.Row{"Reason", "Wins", "Losses", "Nulls"})
	for _, reason := range exitReasons {
		rc := s.ExitReasons[reason]
		reasons.AppendRow(table.Row{string(reason), rc.Wins, rc.Losses, rc.Nulls})
	}
	reasons.Render()

	regimeTable := r.newTable("REGIMES")
	regimeTable.AppendHeader(table.Row{"Regime", "Trades", "Win Rate"})
	for _, regime := range regimes {
		regimeTable.AppendRow(table.Row{string(regime), s.RegimeTrades[regime], formatRate(s.RegimeWinRate[regime])})
	}
	regimeTable.Render()

	rej := result.Rejections
	if rej.InvalidStop+rej.MarginExceeded+rej.SkippedUndefined > 0 {
		rt := r.newTable("SKIPPED TICKS")
		rt.AppendRows([]table.Row{
			{"Invalid stop", rej.InvalidStop},
			{"Margin exceeded", rej.MarginExceeded},
			{"Indicator undefined", rej.SkippedUndefined},
		})
		rt.Render()
	}

	if p := result.Open; p != nil {
		ot := r.newTable("OPEN POSITION")
		ot.AppendRows([]table.Row{
			{"Side", string(p.Side)},
			{"Entry", fmt.Sprintf("%.8g at %s", p.EntryPrice, formatTime(p.EntryTime, r.loc))},
			{"Stop", fmt.Sprintf("%.8g", p.Stop)},
			{"Quantity", fmt.Sprintf("%.8g @ %.0fx", p.Quantity, p.Leverage)},
		})
		if p.TakeProfit != 0 {
			ot.AppendRow(table.Row{"Take Profit", fmt.Sprintf("%.8g", p.TakeProfit)})
		}
		ot.Render()
	}
	fmt.Fprintln(r.out)
}

// OutputLeaderboard prints the best top results of a ranked sweep
func (r *DefaultConsoleReporter) OutputLeaderboard(ranked []backtest.SweepResult, top int, by backtest.Ranking) {
	if top <= 0 || top > len(ranked) {
		top = len(ranked)
	}

	t := r.newTable(fmt.Sprintf("TOP %d BY %s", top, by))
	t.AppendHeader(table.Row{"#", "Parameters", "Trades", "Win Rate", "Profit", "Sharpe", "Max DD"})
	for i, res := range ranked[:top] {
		s := res.Result.Summary
		t.AppendRow(table.Row{
			i + 1,
			res.Job.Label,
			s.Total,
			formatRate(s.WinRate),
			formatRate(s.ProfitPct),
			formatRatio(s.SharpeRatio),
			formatRate(s.MaxDrawdown * 100),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 80, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}
