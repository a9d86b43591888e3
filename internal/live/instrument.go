package live

import (
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// ErrBelowMinQty means the normalised quantity is smaller than the exchange minimum
var ErrBelowMinQty = stderrors.New("quantity below exchange minimum")

// Instrument snaps quantities and prices onto the grid of one symbol.
// A zero step or tick leaves the value unchanged.
type Instrument struct {
	info exchange.InstrumentInfo
}

func NewInstrument(info exchange.InstrumentInfo) *Instrument {
	return &Instrument{info: info}
}

// Info returns the grid the instrument was built from
func (i *Instrument) Info() exchange.InstrumentInfo {
	return i.info
}

// NormalizeQty floors qty to the step size and caps it at the maximum
func (i *Instrument) NormalizeQty(qty float64) (decimal.Decimal, error) {
	q := floorTo(decimal.NewFromFloat(qty), i.info.StepSize)
	if i.info.MaxQty.IsPositive() && q.GreaterThan(i.info.MaxQty) {
		q = floorTo(i.info.MaxQty, i.info.StepSize)
	}
	if !q.IsPositive() || q.LessThan(i.info.MinQty) {
		return q, fmt.Errorf("%s qty %s (min %s): %w", i.info.Symbol, q, i.info.MinQty, ErrBelowMinQty)
	}
	return q, nil
}

// NormalizePrice snaps a price to the tick size, down for longs and up for shorts
func (i *Instrument) NormalizePrice(price float64, side types.Side) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if side == types.SideShort {
		return ceilTo(p, i.info.TickSize)
	}
	return floorTo(p, i.info.TickSize)
}

func floorTo(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

func ceilTo(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Ceil().Mul(step)
}
