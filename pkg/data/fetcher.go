package data

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// Period labels understood by ResolvePeriod besides years and trailing durations
const (
	PeriodLastYear  = "lastYear"
	PeriodLastMonth = "lastMonth"
)

// DefaultRequestPause spaces page requests to stay clear of rate limits
const DefaultRequestPause = 300 * time.Millisecond

// Fetcher pages through a KlineSource to collect a time range
type Fetcher struct {
	source   KlineSource
	pageSize int
	pause    time.Duration
	progress bool
	logger   *zap.Logger
	now      func() time.Time
	filter   *DefaultDataFilter
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithPageSize sets candles per request, capped at the exchange maximum
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 && n <= exchange.MaxKlinesPerRequest {
			f.pageSize = n
		}
	}
}

// WithPause sets the wait between page requests
func WithPause(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.pause = d }
}

// WithProgressBar draws a progress bar on stderr while fetching
func WithProgressBar(enabled bool) FetcherOption {
	return func(f *Fetcher) { f.progress = enabled }
}

// WithFetchLogger sets the logger
func WithFetchLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock replaces time.Now when resolving period labels
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a fetcher over source
func NewFetcher(source KlineSource, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:   source,
		pageSize: exchange.MaxKlinesPerRequest,
		pause:    DefaultRequestPause,
		logger:   zap.NewNop(),
		now:      time.Now,
		filter:   NewDefaultDataFilter(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPeriod fetches the range a period label resolves to
func (f *Fetcher) FetchPeriod(ctx context.Context, symbol, interval, label string) ([]types.Candle, error) {
	start, end, err := ResolvePeriod(label, f.now())
	if err != nil {
		return nil, err
	}
	return f.FetchRange(ctx, symbol, interval, start, end)
}

// FetchRange collects the closed candles opening in [start, end], oldest first.
// Each request covers at most one page; the next starts 1ms after the last close.
func (f *Fetcher) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]types.Candle, error) {
	length, err := exchange.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("empty range %s .. %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var bar *progressbar.ProgressBar
	if f.progress {
		bar = progressbar.NewOptions64(int64(end.Sub(start)/length),
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s %s from %s", symbol, interval, f.source.Name())),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		defer func() { _ = bar.Finish() }()
	}

	var all []types.Candle
	cursor := start
	requests := 0
	for cursor.Before(end) {
		if requests > 0 && f.pause > 0 {
			if err := sleepCtx(ctx, f.pause); err != nil {
				return nil, err
			}
		}

		windowEnd := cursor.Add(time.Duration(f.pageSize)*length - time.Millisecond)
		if windowEnd.After(end) {
			windowEnd = end
		}

		page, err := f.source.Klines(ctx, exchange.KlineRequest{
			Symbol:   symbol,
			Interval: interval,
			Start:    cursor,
			End:      windowEnd,
			Limit:    f.pageSize,
		})
		requests++
		if err != nil {
			return nil, fmt.Errorf("fetching %s %s from %s: %w", symbol, interval, cursor.Format(time.RFC3339), err)
		}

		added := 0
		next := windowEnd.Add(time.Millisecond)
		for _, c := range page {
			if c.OpenTime.Before(cursor) || c.OpenTime.After(end) {
				continue
			}
			if c.CloseTime.IsZero() {
				c.CloseTime = exchange.CloseTimeFor(c.OpenTime, length)
			}
			all = append(all, c)
			added++
			next = c.CloseTime.Add(time.Millisecond)
		}
		if !next.After(cursor) {
			next = windowEnd.Add(time.Millisecond)
		}
		cursor = next

		if bar != nil {
			_ = bar.Add(added)
		}
		f.logger.Debug("fetched page",
			zap.String("symbol", symbol),
			zap.Int("page", added),
			zap.Int("total", len(all)))
	}

	all = f.filter.Normalize(all)
	f.logger.Info("fetch complete",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.String("source", f.source.Name()),
		zap.Int("candles", len(all)),
		zap.Int("requests", requests))
	return all, nil
}

// ResolvePeriod turns a period label into a time range ending at now.
// Accepted: lastYear, lastMonth, a calendar year such as 2023, or a trailing window like 30d or 168h.
func ResolvePeriod(label string, now time.Time) (time.Time, time.Time, error) {
	switch label {
	case PeriodLastYear:
		return now.AddDate(-1, 0, 0), now, nil
	case PeriodLastMonth:
		return now.AddDate(0, -1, 0), now, nil
	}

	if len(label) == 4 {
		if year, err := strconv.Atoi(label); err == nil && year > 2000 {
			start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)
			if end.After(now) {
				end = now
			}
			if !start.Before(end) {
				return time.Time{}, time.Time{}, fmt.Errorf("period %s lies in the future", label)
			}
			return start, end, nil
		}
	}

	if d, ok := ParseTrailingPeriod(label); ok {
		return now.Add(-d), now, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q (use %s, %s, a year or e.g. 30d)",
		label, PeriodLastYear, PeriodLastMonth)
}

// ParseTrailingPeriod parses period strings like "7d", "30days" or "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
