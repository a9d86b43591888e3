package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDataManager_Load_PrefersStoredFile(t *testing.T) {
	store := NewFileStore(t.TempDir())
	candles := minuteCandles(t0, 20)
	_, err := store.Save("BTCUSDT", "1m", "lastMonth", candles)
	require.NoError(t, err)

	src := &mockSource{}
	dm := NewDataManager(store, NewFetcher(src, WithPause(0)), nil)

	got, err := dm.Load(context.Background(), "btcusdt", "1m", "lastMonth")
	require.NoError(t, err)
	assert.Equal(t, candles, got)
	src.AssertNotCalled(t, "Klines", mock.Anything, mock.Anything)
}

func TestDataManager_Load_FetchesAndSaves(t *testing.T) {
	store := NewFileStore(t.TempDir())
	now := t0.Add(2 * time.Hour)
	src := pagedSource(minuteCandles(t0, 120))
	dm := NewDataManager(store, NewFetcher(src, WithPause(0), WithClock(func() time.Time { return now })), nil)

	got, err := dm.Load(context.Background(), "BTCUSDT", "1m", "1h")
	require.NoError(t, err)
	assert.Len(t, got, 60)
	assert.True(t, store.Exists("BTCUSDT", "1m", "1h"))

	// second load is served from disk
	calls := len(src.Calls)
	again, err := dm.Load(context.Background(), "BTCUSDT", "1m", "1h")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Len(t, src.Calls, calls)
}

func TestDataManager_Load_FallsBackToCSVDump(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mock", "spot", "BTCUSDT", "5")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "candles.csv"), []byte(sampleCSV), 0644))

	src := &mockSource{}
	dm := NewDataManager(NewFileStore(root), NewFetcher(src), nil)

	got, err := dm.Load(context.Background(), "BTCUSDT", "5m", "1h")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.False(t, got[0].CloseTime.IsZero(), "close time derived from the interval")
	src.AssertNotCalled(t, "Klines", mock.Anything, mock.Anything)
}

func TestDataManager_Load_Offline(t *testing.T) {
	dm := NewDataManager(NewFileStore(t.TempDir()), nil, nil)
	_, err := dm.Load(context.Background(), "BTCUSDT", "1m", "lastYear")
	assert.ErrorContains(t, err, "no exchange configured")

	_, _, err = dm.Refresh(context.Background(), "BTCUSDT", "1m", "lastYear")
	assert.Error(t, err)
}

func TestDataManager_LoadFile_UnknownExtension(t *testing.T) {
	dm := NewDataManager(NewFileStore(t.TempDir()), nil, nil)
	_, err := dm.LoadFile("candles.parquet", "1m")
	assert.Error(t, err)
}
