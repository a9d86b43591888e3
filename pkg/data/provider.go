package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/exchange"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// DataManager resolves a symbol, interval and period label to candles: the JSON
// store first, then a CSV dump found by the locator, then the fetcher.
type DataManager struct {
	store    *FileStore
	fetcher  *Fetcher
	exchange string
	json     *CachedProvider
	filter   DataFilter
	locator  FileLocator
	logger   *zap.Logger
}

// NewDataManager creates a data manager over store. fetcher may be nil for offline use.
func NewDataManager(store *FileStore, fetcher *Fetcher, logger *zap.Logger) *DataManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	dm := &DataManager{
		store:   store,
		fetcher: fetcher,
		json:    NewCachedProvider(JSONProvider{}, logger),
		filter:  NewDefaultDataFilter(),
		locator: NewDefaultFileLocator(),
		logger:  logger,
	}
	if fetcher != nil {
		dm.exchange = fetcher.source.Name()
	}
	return dm
}

// Load returns the candles for the period, fetching and saving them when nothing is stored
func (dm *DataManager) Load(ctx context.Context, symbol, interval, label string) ([]types.Candle, error) {
	symbol = strings.ToUpper(symbol)

	if dm.store.Exists(symbol, interval, label) {
		candles, err := dm.json.LoadData(dm.store.Path(symbol, interval, label))
		if err != nil {
			return nil, err
		}
		return candles, dm.json.ValidateData(candles)
	}

	if path := dm.locator.FindDataFile(dm.store.Root(), dm.exchange, symbol, interval); path != "" {
		candles, err := dm.LoadFile(path, interval)
		if err != nil {
			return nil, err
		}
		return dm.trimToPeriod(candles, label), nil
	}

	if dm.fetcher == nil {
		return nil, fmt.Errorf("no stored candles for %s %s %s and no exchange configured", symbol, interval, label)
	}

	dm.logger.Info("no stored candles, fetching",
		zap.String("symbol", symbol), zap.String("interval", interval), zap.String("period", label))
	candles, _, err := dm.Refresh(ctx, symbol, interval, label)
	return candles, err
}

// Refresh fetches the period from the exchange and overwrites the stored file
func (dm *DataManager) Refresh(ctx context.Context, symbol, interval, label string) ([]types.Candle, string, error) {
	if dm.fetcher == nil {
		return nil, "", fmt.Errorf("no exchange configured")
	}
	symbol = strings.ToUpper(symbol)

	candles, err := dm.fetcher.FetchPeriod(ctx, symbol, interval, label)
	if err != nil {
		return nil, "", err
	}
	if err := ValidateCandles(candles); err != nil {
		return nil, "", err
	}

	path, err := dm.store.Save(symbol, interval, label, candles)
	if err != nil {
		return nil, "", err
	}
	dm.json.Invalidate(path)

	dm.logger.Info("saved candles", zap.String("file", path), zap.Int("candles", len(candles)))
	return candles, path, nil
}

// LoadFile reads a .json or .csv candle file and validates it
func (dm *DataManager) LoadFile(path, interval string) ([]types.Candle, error) {
	var provider DataProvider
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		provider = dm.json
	case ".csv":
		opts := []CSVOption{WithCSVLogger(dm.logger)}
		if d, err := exchange.ParseInterval(interval); err == nil {
			opts = append(opts, WithCandleInterval(d))
		}
		provider = NewCSVProvider(opts...)
	default:
		return nil, fmt.Errorf("unsupported candle file %s", path)
	}

	candles, err := provider.LoadData(path)
	if err != nil {
		return nil, err
	}
	if err := provider.ValidateData(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// trimToPeriod cuts a larger dump to the trailing window of a period label
func (dm *DataManager) trimToPeriod(candles []types.Candle, label string) []types.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1].OpenTime
	start, end, err := ResolvePeriod(label, last)
	if err != nil {
		return candles
	}
	if end.Sub(start) <= 0 {
		return candles
	}
	return dm.filter.FilterByDateRange(candles, start, end.Add(time.Millisecond))
}
