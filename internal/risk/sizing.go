package risk

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// DefaultMaxLeverage caps leverage escalation
const DefaultMaxLeverage = 20.0

// Sizing is the outcome of a sizing decision
type Sizing struct {
	Quantity     float64
	Notional     float64
	Margin       float64
	Leverage     float64
	MaxLoss      float64
	StopDistance float64
	Escalated    bool
}

// Size computes a risk-based position: losing riskPct of balance when the stop is hit.
//
//	maxLoss  = balance * riskPct / 100
//	quantity = maxLoss / |entry - stop|
//	margin   = quantity * entry / leverage
//
// The stop must sit on the losing side of entry.
func Size(balance, riskPct, entry, stop, leverage float64, side types.Side) (Sizing, error) {
	dist, err := stopDistance(entry, stop, side)
	if err != nil {
		return Sizing{}, err
	}
	if leverage <= 0 {
		return Sizing{}, fmt.Errorf("leverage must be positive, got %.2f", leverage)
	}

	maxLoss := balance * riskPct / 100
	qty := maxLoss / dist
	notional := qty * entry

	return Sizing{
		Quantity:     qty,
		Notional:     notional,
		Margin:       notional / leverage,
		Leverage:     leverage,
		MaxLoss:      maxLoss,
		StopDistance: dist,
	}, nil
}

// stopDistance is the favourable distance from stop to entry; zero or negative is rejected
// before any division happens
func stopDistance(entry, stop float64, side types.Side) (float64, error) {
	if side != types.SideLong && side != types.SideShort {
		return 0, fmt.Errorf("cannot size side %q: %w", side, errors.ErrInvalidStop)
	}
	if entry <= 0 || math.IsNaN(stop) {
		return 0, fmt.Errorf("entry %.8f stop %.8f: %w", entry, stop, errors.ErrInvalidStop)
	}
	dist := types.FavorableMove(side, stop, entry)
	if dist <= 0 {
		return 0, fmt.Errorf("stop %.8f on wrong side of %s entry %.8f: %w", stop, side, entry, errors.ErrInvalidStop)
	}
	return dist, nil
}

// RiskSizer sizes by fixed fractional risk and escalates leverage when the
// margin would not fit the balance
type RiskSizer struct {
	RiskPct     float64
	Leverage    float64
	MaxLeverage float64
}

// NewRiskSizer creates a risk sizer with the default leverage cap
func NewRiskSizer(riskPct, leverage float64) *RiskSizer {
	return &RiskSizer{
		RiskPct:     riskPct,
		Leverage:    leverage,
		MaxLeverage: DefaultMaxLeverage,
	}
}

// Name identifies the sizing rule
func (s *RiskSizer) Name() string {
	return fmt.Sprintf("risk %.2f%% @%.0fx", s.RiskPct, s.Leverage)
}

// Size implements Sizer
func (s *RiskSizer) Size(balance, entry, stop float64, side types.Side) (Sizing, error) {
	sz, err := Size(balance, s.RiskPct, entry, stop, s.Leverage, side)
	if err != nil {
		return Sizing{}, err
	}
	if balance <= 0 {
		return Sizing{}, fmt.Errorf("balance %.2f: %w", balance, errors.ErrMarginExceeded)
	}
	if sz.Margin <= balance {
		return sz, nil
	}

	maxLev := s.MaxLeverage
	if maxLev <= 0 {
		maxLev = DefaultMaxLeverage
	}

	lev := math.Ceil(sz.Notional / balance)
	if lev > maxLev {
		lev = maxLev
	}
	if lev < sz.Leverage {
		lev = sz.Leverage
	}

	sz.Leverage = lev
	sz.Margin = sz.Notional / lev
	sz.Escalated = true

	if sz.Margin > balance {
		return Sizing{}, fmt.Errorf("margin %.2f at %.0fx over balance %.2f: %w", sz.Margin, lev, balance, errors.ErrMarginExceeded)
	}
	return sz, nil
}

// FixedLeverageSizer commits the whole balance as margin at a fixed leverage
type FixedLeverageSizer struct {
	Leverage float64
}

// NewFixedLeverageSizer creates a full-balance sizer
func NewFixedLeverageSizer(leverage float64) *FixedLeverageSizer {
	return &FixedLeverageSizer{Leverage: leverage}
}

// Name identifies the sizing rule
func (s *FixedLeverageSizer) Name() string {
	return fmt.Sprintf("full balance @%.0fx", s.Leverage)
}

// Size implements Sizer
func (s *FixedLeverageSizer) Size(balance, entry, stop float64, side types.Side) (Sizing, error) {
	dist, err := stopDistance(entry, stop, side)
	if err != nil {
		return Sizing{}, err
	}
	if s.Leverage <= 0 {
		return Sizing{}, fmt.Errorf("leverage must be positive, got %.2f", s.Leverage)
	}
	if balance <= 0 {
		return Sizing{}, fmt.Errorf("balance %.2f: %w", balance, errors.ErrMarginExceeded)
	}

	notional := balance * s.Leverage
	qty := notional / entry
	return Sizing{
		Quantity:     qty,
		Notional:     notional,
		Margin:       balance,
		Leverage:     s.Leverage,
		MaxLoss:      qty * dist,
		StopDistance: dist,
	}, nil
}
