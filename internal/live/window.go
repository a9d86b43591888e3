package live

import (
	"fmt"
	"sync"

	"github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// DefaultWindowSize is the number of candles a session keeps and seeds from REST
const DefaultWindowSize = 500

// Window holds the most recent closed candles of one symbol, oldest first
type Window struct {
	mu       sync.RWMutex
	candles  []types.Candle
	capacity int
}

// NewWindow creates an empty window keeping at most capacity candles
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		candles:  make([]types.Candle, 0, capacity),
		capacity: capacity,
	}
}

// Seed replaces the content with the newest candles of history
func (w *Window) Seed(history []types.Candle) error {
	if err := types.ValidateCandles(history); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedData, err)
	}
	if len(history) > w.capacity {
		history = history[len(history)-w.capacity:]
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.candles = append(w.candles[:0], history...)
	return nil
}

// Append adds a candle that opens after the last one and evicts the oldest
// once the window is full. A candle that does not advance the window is
// reported with false and leaves it unchanged.
func (w *Window) Append(c types.Candle) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrMalformedData, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.candles); n > 0 && !c.OpenTime.After(w.candles[n-1].OpenTime) {
		return false, nil
	}
	if len(w.candles) == w.capacity {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:len(w.candles)-1]
	}
	w.candles = append(w.candles, c)
	return true, nil
}

// Snapshot returns a copy safe to read while the window keeps moving
func (w *Window) Snapshot() []types.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}

// Last returns the newest candle
func (w *Window) Last() (types.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.candles) == 0 {
		return types.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}
