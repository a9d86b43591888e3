package reporting

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// LoadLocation resolves an IANA zone name; an empty name is UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

// formatRate prints a percentage, NaN as n/a
func formatRate(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func formatRatio(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// regimes in display order
var regimes = []types.Regime{types.RegimeTrend, types.RegimeRange}

// exitReasons in display order
var exitReasons = []types.ExitReason{types.ExitStopLoss, types.ExitTakeProfit, types.ExitSignalReversal}
