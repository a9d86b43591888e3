package reporting

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/signal-backtester/internal/backtest"
)

// Sheet names of the trades workbook
const (
	TradesSheet  = "Trades"
	SummarySheet = "Summary"
	RegimesSheet = "Regimes"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	loc *time.Location
}

// NewDefaultExcelReporter creates an Excel reporter printing times in loc
func NewDefaultExcelReporter(loc *time.Location) *DefaultExcelReporter {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultExcelReporter{loc: loc}
}

// WriteTradesXLSX writes a workbook with the trade ledger, the summary and the
// regime and exit reason breakdowns
func (r *DefaultExcelReporter) WriteTradesXLSX(result *backtest.BacktestResult, run RunContext, path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), TradesSheet); err != nil {
		return err
	}
	for _, name := range []string{SummarySheet, RegimesSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, result, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, result, run, styles); err != nil {
		return err
	}
	if err := r.writeRegimesSheet(fx, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

var lightBorder = []excelize.Border{
	{Type: "left", Color: "E0E0E0", Style: 1},
	{Type: "right", Color: "E0E0E0", Style: 1},
	{Type: "bottom", Color: "E0E0E0", Style: 1},
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - Dark blue background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.TitleStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 13, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}

	// Currency style (right aligned, $ format)
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	priceFmt := "0.00######"
	styles.PriceStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &priceFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: lightBorder})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, result *backtest.BacktestResult, styles ExcelStyles) error {
	sheet := TradesSheet
	widths := []float64{6, 7, 8, 22, 22, 13, 13, 13, 9, 10, 10, 12, 14, 7, 15}
	headers := []string{
		"#", "Side", "Regime", "Entry Time", "Exit Time", "Entry Price", "Exit Price",
		"Quantity", "Leverage", "Profit %", "Return %", "PnL", "Balance After", "Result", "Exit Reason",
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := fx.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle); err != nil {
			return err
		}
	}

	for i, t := range result.Trades {
		row := i + 2
		values := []interface{}{
			i + 1,
			string(t.Side),
			string(t.Regime),
			formatTime(t.EntryTime, r.loc),
			formatTime(t.ExitTime, r.loc),
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.Leverage,
			t.ProfitPct / 100,
			t.ReturnPct / 100,
			t.PnL,
			t.BalanceAfter,
			string(t.Result),
			string(t.ExitReason),
		}

		pctStyle := styles.GreenPercentStyle
		if t.PnL < 0 {
			pctStyle = styles.RedPercentStyle
		}
		for col, v := range values {
			style := styles.BaseStyle
			switch col {
			case 5, 6, 7:
				style = styles.PriceStyle
			case 9, 10:
				style = pctStyle
			case 11, 12:
				style = styles.CurrencyStyle
			}
			if err := r.writeCell(fx, sheet, col+1, row, v, style); err != nil {
				return err
			}
		}
	}

	if err := fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if len(result.Trades) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), len(result.Trades)+1)
		if err := fx.AutoFilter(sheet, "A1:"+last, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, result *backtest.BacktestResult, run RunContext, styles ExcelStyles) error {
	sheet := SummarySheet
	if err := fx.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	if err := fx.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}

	if err := r.writeCell(fx, sheet, 1, 1, fmt.Sprintf("%s %s %s | %s", run.Symbol, run.Interval, run.Period, result.Policy), styles.TitleStyle); err != nil {
		return err
	}

	s := result.Summary
	type metric struct {
		name  string
		value interface{}
		style int
	}
	metrics := []metric{
		{"Exchange", run.Exchange, styles.BaseStyle},
		{"Candles", result.Candles, styles.BaseStyle},
		{"First Evaluated Candle", result.Start, styles.BaseStyle},
		{"Initial Balance", result.BalanceStart, styles.CurrencyStyle},
		{"Final Balance", result.BalanceEnd, styles.CurrencyStyle},
		{"Net PnL", s.NetPnL, styles.CurrencyStyle},
		{"Profit", s.ProfitPct / 100, styles.PercentStyle},
		{"Trades", s.Total, styles.BaseStyle},
		{"Longs", s.Longs, styles.BaseStyle},
		{"Shorts", s.Shorts, styles.BaseStyle},
		{"Wins", s.Wins, styles.BaseStyle},
		{"Losses", s.Losses, styles.BaseStyle},
		{"Nulls", s.Nulls, styles.BaseStyle},
		{"Win Rate", s.WinRate / 100, styles.PercentStyle},
		{"Avg Trade", s.AvgTradePct / 100, styles.PercentStyle},
		{"Profit Factor", cellNumber(s.ProfitFactor), styles.BaseStyle},
		{"Max Drawdown", s.MaxDrawdown, styles.PercentStyle},
		{"Sharpe Ratio", s.SharpeRatio, styles.BaseStyle},
		{"Rejected: Invalid Stop", result.Rejections.InvalidStop, styles.BaseStyle},
		{"Rejected: Margin Exceeded", result.Rejections.MarginExceeded, styles.BaseStyle},
		{"Skipped: Indicator Undefined", result.Rejections.SkippedUndefined, styles.BaseStyle},
	}

	if err := r.writeHeader(fx, sheet, 3, []string{"Metric", "Value"}, styles); err != nil {
		return err
	}
	for i, m := range metrics {
		row := i + 4
		if err := r.writeCell(fx, sheet, 1, row, m.name, styles.BaseStyle); err != nil {
			return err
		}
		if err := r.writeCell(fx, sheet, 2, row, m.value, m.style); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeRegimesSheet(fx *excelize.File, result *backtest.BacktestResult, styles ExcelStyles) error {
	sheet := RegimesSheet
	if err := fx.SetColWidth(sheet, "A", "D", 16); err != nil {
		return err
	}
	s := result.Summary

	if err := r.writeHeader(fx, sheet, 1, []string{"Regime", "Trades", "Win Rate"}, styles); err != nil {
		return err
	}
	row := 2
	for _, regime := range regimes {
		rate := s.RegimeWinRate[regime]
		values := []interface{}{string(regime), s.RegimeTrades[regime], cellNumber(rate / 100)}
		for col, v := range values {
			style := styles.BaseStyle
			if col == 2 {
				style = styles.PercentStyle
			}
			if err := r.writeCell(fx, sheet, col+1, row, v, style); err != nil {
				return err
			}
		}
		row++
	}

	row++
	if err := r.writeHeader(fx, sheet, row, []string{"Exit Reason", "Wins", "Losses", "Nulls"}, styles); err != nil {
		return err
	}
	for _, reason := range exitReasons {
		row++
		rc := s.ExitReasons[reason]
		for col, v := range []interface{}{string(reason), rc.Wins, rc.Losses, rc.Nulls} {
			if err := r.writeCell(fx, sheet, col+1, row, v, styles.BaseStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeHeader(fx *excelize.File, sheet string, row int, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		if err := r.writeCell(fx, sheet, i+1, row, h, styles.HeaderStyle); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeCell(fx *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, cell, cell, style)
}

// cellNumber keeps finite values and turns NaN or infinity into a label
func cellNumber(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatRatio(v)
	}
	return v
}
