package backtest

import (
	"time"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Position is the single simulated position of a run. Side flat means no position.
type Position struct {
	Side            types.Side   `json:"side"`
	EntryPrice      float64      `json:"entryPrice"`
	EntryTime       time.Time    `json:"entryTime"`
	EntryIndex      int          `json:"entryIndex"`
	Quantity        float64      `json:"quantity"`
	Leverage        float64      `json:"leverage"`
	Margin          float64      `json:"margin"`
	Stop            float64      `json:"stop"`
	InitialStop     float64      `json:"initialStop"`
	TakeProfit      float64      `json:"takeProfit,omitempty"`
	TrailingActive  bool         `json:"trailingActive"`
	BreakevenActive bool         `json:"breakevenActive"`
	Regime          types.Regime `json:"regime"`
}

// IsOpen reports whether the position is long or short
func (p Position) IsOpen() bool {
	return p.Side == types.SideLong || p.Side == types.SideShort
}

// UnrealizedPct is the side-signed price move from entry to price in percent
func (p Position) UnrealizedPct(price float64) float64 {
	return types.FavorablePct(p.Side, p.EntryPrice, price)
}

// tighten moves the stop to candidate only if that reduces risk
func (p *Position) tighten(candidate float64) bool {
	if !types.Tighter(p.Side, candidate, p.Stop) {
		return false
	}
	p.Stop = candidate
	return true
}

// reset returns the position to flat
func (p *Position) reset() {
	*p = Position{Side: types.SideFlat}
}

// Trade is a closed position. Trades are append-only in exit order.
type Trade struct {
	Side         types.Side        `json:"side"`
	EntryTime    time.Time         `json:"entryTime"`
	ExitTime     time.Time         `json:"exitTime"`
	EntryIndex   int               `json:"entryIndex"`
	ExitIndex    int               `json:"exitIndex"`
	EntryPrice   float64           `json:"entryPrice"`
	ExitPrice    float64           `json:"exitPrice"`
	Quantity     float64           `json:"quantity"`
	Leverage     float64           `json:"leverage"`
	Result       types.TradeResult `json:"result"`
	ProfitPct    float64           `json:"profitPct"`
	ReturnPct    float64           `json:"returnPct"`
	PnL          float64           `json:"pnl"`
	BalanceAfter float64           `json:"balanceAfter"`
	Regime       types.Regime      `json:"regime"`
	ExitReason   types.ExitReason  `json:"exitReason"`
}

// closeTrade settles p at exitPrice against balance and returns the trade
func closeTrade(p Position, exitPrice float64, exit types.Candle, exitIndex int, reason types.ExitReason, balance float64) Trade {
	move := types.FavorableMove(p.Side, p.EntryPrice, exitPrice)
	pnl := p.Quantity * move

	result := types.ResultNull
	switch {
	case pnl > 0:
		result = types.ResultWin
	case pnl < 0:
		result = types.ResultLoss
	}

	returnPct := 0.0
	if balance != 0 {
		returnPct = pnl / balance * 100
	}

	return Trade{
		Side:         p.Side,
		EntryTime:    p.EntryTime,
		ExitTime:     exit.CloseTime,
		EntryIndex:   p.EntryIndex,
		ExitIndex:    exitIndex,
		EntryPrice:   p.EntryPrice,
		ExitPrice:    exitPrice,
		Quantity:     p.Quantity,
		Leverage:     p.Leverage,
		Result:       result,
		ProfitPct:    move / p.EntryPrice * 100,
		ReturnPct:    returnPct,
		PnL:          pnl,
		BalanceAfter: balance + pnl,
		Regime:       p.Regime,
		ExitReason:   reason,
	}
}
