package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// MemoryCache keeps decoded candle files keyed by path, each stamped with the
// modification time of the file it was read from
type MemoryCache struct {
	entries map[string]cacheEntry
	mutex   sync.RWMutex
}

type cacheEntry struct {
	modTime time.Time
	candles []types.Candle
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get returns a copy of the candles cached for key when they were read from a
// file with the same modification time
func (c *MemoryCache) Get(key string, modTime time.Time) ([]types.Candle, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.modTime.Equal(modTime) {
		return nil, false
	}
	out := make([]types.Candle, len(e.candles))
	copy(out, e.candles)
	return out, true
}

func (c *MemoryCache) Set(key string, modTime time.Time, candles []types.Candle) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := make([]types.Candle, len(candles))
	copy(stored, candles)
	c.entries[key] = cacheEntry{modTime: modTime, candles: stored}
}

func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// CachedProvider decodes each candle file once per version on disk. Sweeps and
// repeated runs over the same period skip the JSON decode.
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	logger   *zap.Logger
}

func NewCachedProvider(provider DataProvider, logger *zap.Logger) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache(), logger)
}

func NewCachedProviderWithCache(provider DataProvider, cache DataCache, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

func (p *CachedProvider) GetName() string {
	return p.provider.GetName()
}

// LoadData serves path from memory unless the file changed since it was cached
func (p *CachedProvider) LoadData(path string) ([]types.Candle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("candle file %s: %w", path, err)
	}
	if candles, ok := p.cache.Get(path, info.ModTime()); ok {
		p.logger.Debug("candle file served from memory", zap.String("file", filepath.Base(path)))
		return candles, nil
	}

	candles, err := p.provider.LoadData(path)
	if err != nil {
		p.logger.Error("failed to load candle file", zap.String("file", filepath.Base(path)), zap.Error(err))
		return nil, err
	}
	p.cache.Set(path, info.ModTime(), candles)

	p.logger.Info("loaded candle file", zap.String("file", filepath.Base(path)), zap.Int("candles", len(candles)))
	return candles, nil
}

func (p *CachedProvider) ValidateData(data []types.Candle) error {
	return p.provider.ValidateData(data)
}

// Invalidate drops path so the next load reads the file again
func (p *CachedProvider) Invalidate(path string) {
	p.cache.Delete(path)
}
