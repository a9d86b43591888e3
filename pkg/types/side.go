package types

// Side is the direction of a position
type Side string

const (
	SideFlat  Side = "flat"
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign returns +1 for long, -1 for short and 0 when flat
func (s Side) Sign() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// Opposite returns the other direction; flat stays flat
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideFlat
	}
}

// Regime labels the market state a trade was opened in
type Regime string

const (
	RegimeTrend   Regime = "trend"
	RegimeRange   Regime = "range"
	RegimeUnknown Regime = "unknown"
)

// ExitReason names the rule that closed a position
type ExitReason string

const (
	ExitStopLoss       ExitReason = "stopLoss"
	ExitTakeProfit     ExitReason = "takeProfit"
	ExitSignalReversal ExitReason = "signalReversal"
)

// TradeResult is the outcome class of a closed trade
type TradeResult string

const (
	ResultWin  TradeResult = "win"
	ResultLoss TradeResult = "loss"
	ResultNull TradeResult = "null"
)

// FavorableMove is the price change from -> to, positive when it profits the side
func FavorableMove(side Side, from, to float64) float64 {
	return side.Sign() * (to - from)
}

// FavorablePct is FavorableMove as a percentage of from
func FavorablePct(side Side, from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return FavorableMove(side, from, to) / from * 100
}

// WorseOrEqual reports whether price sits at or beyond level on the losing side.
// For a long that is price <= level, for a short price >= level.
func WorseOrEqual(side Side, price, level float64) bool {
	switch side {
	case SideLong:
		return price <= level
	case SideShort:
		return price >= level
	default:
		return false
	}
}

// BetterOrEqual reports whether price sits at or beyond level on the winning side
func BetterOrEqual(side Side, price, level float64) bool {
	switch side {
	case SideLong:
		return price >= level
	case SideShort:
		return price <= level
	default:
		return false
	}
}

// ShiftFavorable moves price by pct percent in the side's profit direction
func ShiftFavorable(side Side, price, pct float64) float64 {
	return price * (1 + side.Sign()*pct/100)
}

// ShiftAdverse moves price by pct percent against the side
func ShiftAdverse(side Side, price, pct float64) float64 {
	return price * (1 - side.Sign()*pct/100)
}

// OffsetFavorable moves price by an absolute distance in the profit direction
func OffsetFavorable(side Side, price, dist float64) float64 {
	return price + side.Sign()*dist
}

// OffsetAdverse moves price by an absolute distance against the side
func OffsetAdverse(side Side, price, dist float64) float64 {
	return price - side.Sign()*dist
}

// Tighter reports whether candidate is a strictly tighter stop than current
func Tighter(side Side, candidate, current float64) bool {
	switch side {
	case SideLong:
		return candidate > current
	case SideShort:
		return candidate < current
	default:
		return false
	}
}
