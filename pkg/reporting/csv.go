package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct {
	loc *time.Location
}

// NewDefaultCSVReporter creates a CSV reporter printing times in loc
func NewDefaultCSVReporter(loc *time.Location) *DefaultCSVReporter {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultCSVReporter{loc: loc}
}

// WriteTradesCSV writes one row per closed trade followed by a summary row
func (r *DefaultCSVReporter) WriteTradesCSV(result *backtest.BacktestResult, path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"Trade",
		"Side",
		"Regime",
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Quantity",
		"Leverage",
		"Profit_%",
		"Return_%",
		"PnL",
		"Balance_After",
		"Result",
		"Exit_Reason",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range result.Trades {
		row := []string{
			strconv.Itoa(i + 1),
			string(t.Side),
			string(t.Regime),
			formatTime(t.EntryTime, r.loc),
			formatTime(t.ExitTime, r.loc),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Quantity, 'f', 8, 64),
			strconv.FormatFloat(t.Leverage, 'f', -1, 64),
			fmt.Sprintf("%.4f", t.ProfitPct),
			fmt.Sprintf("%.4f", t.ReturnPct),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.2f", t.BalanceAfter),
			string(t.Result),
			string(t.ExitReason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	s := result.Summary
	summaryRow := make([]string, len(header))
	summaryRow[0] = "SUMMARY"
	summaryRow[len(header)-1] = fmt.Sprintf("trades=%d; win_rate=%.2f%%; profit=%.2f%%; net_pnl=$%.2f; balance=$%.2f",
		s.Total, s.WinRate, s.ProfitPct, s.NetPnL, result.BalanceEnd)
	if err := w.Write(summaryRow); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// WriteLeaderboardCSV writes ranked sweep results, one row per combination
func (r *DefaultCSVReporter) WriteLeaderboardCSV(ranked []backtest.SweepResult, path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Rank", "Parameters", "Trades", "Win_Rate_%", "Profit_%", "Sharpe", "Max_DD_%", "Profit_Factor"}); err != nil {
		return err
	}
	for i, res := range ranked {
		s := res.Result.Summary
		if err := w.Write([]string{
			strconv.Itoa(i + 1),
			res.Job.Label,
			strconv.Itoa(s.Total),
			fmt.Sprintf("%.2f", s.WinRate),
			fmt.Sprintf("%.2f", s.ProfitPct),
			fmt.Sprintf("%.4f", s.SharpeRatio),
			fmt.Sprintf("%.2f", s.MaxDrawdown*100),
			formatRatio(s.ProfitFactor),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
