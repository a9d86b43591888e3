package risk

import "github.com/ducminhle1904/signal-backtester/pkg/types"

// Sizer decides quantity and leverage for a new position
type Sizer interface {
	// Size returns the sizing for an entry at entry with the given stop,
	// or ErrInvalidStop / ErrMarginExceeded when the entry must be rejected
	Size(balance, entry, stop float64, side types.Side) (Sizing, error)

	// Name identifies the sizing rule in logs and reports
	Name() string
}
