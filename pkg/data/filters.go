package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod keeps the candles opening at or after the last open time minus period
func (f *DefaultDataFilter) FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].OpenTime.Add(-period)
	startIdx := sort.Search(len(data), func(i int) bool {
		return !data[i].OpenTime.Before(cutoff)
	})
	return data[startIdx:]
}

// FilterByDateRange keeps the candles opening within [start, end]
func (f *DefaultDataFilter) FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle {
	var filtered []types.Candle
	for _, candle := range data {
		if !candle.OpenTime.Before(start) && !candle.OpenTime.After(end) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence ensures data is in chronological order
func (f *DefaultDataFilter) ValidateTimeSequence(data []types.Candle) error {
	for i := 1; i < len(data); i++ {
		if data[i].OpenTime.Before(data[i-1].OpenTime) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, data[i].OpenTime.Format(time.RFC3339), data[i-1].OpenTime.Format(time.RFC3339))
		}
		if data[i].OpenTime.Equal(data[i-1].OpenTime) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, data[i].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}

// SortByTimestamp returns a copy sorted by open time
func (f *DefaultDataFilter) SortByTimestamp(data []types.Candle) []types.Candle {
	sorted := make([]types.Candle, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})
	return sorted
}

// RemoveDuplicates removes duplicate open times, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(data []types.Candle) []types.Candle {
	if len(data) <= 1 {
		return data
	}

	filtered := make([]types.Candle, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, candle := range data {
		ts := candle.OpenTime.UnixMilli()
		if !seen[ts] {
			seen[ts] = true
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// Normalize sorts and de-duplicates candles so that open times strictly increase
func (f *DefaultDataFilter) Normalize(data []types.Candle) []types.Candle {
	return f.RemoveDuplicates(f.SortByTimestamp(data))
}
