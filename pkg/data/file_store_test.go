package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Path(t *testing.T) {
	store := NewFileStore("data")
	assert.Equal(t, filepath.Join("data", "SOLUSDT", "SOLUSDT_3m_lastYear.json"), store.Path("solusdt", "3m", "lastYear"))
}

func TestFileStore_SaveLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())
	candles := minuteCandles(t0, 5)

	assert.False(t, store.Exists("BTCUSDT", "1m", "lastMonth"))
	path, err := store.Save("BTCUSDT", "1m", "lastMonth", candles)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")
	assert.True(t, store.Exists("BTCUSDT", "1m", "lastMonth"))

	loaded, err := store.Load("BTCUSDT", "1m", "lastMonth")
	require.NoError(t, err)
	assert.Equal(t, candles, loaded)
}

func TestLoadJSONFile_EpochMillisFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SOLUSDT_3m_2023.json")
	raw := `[
  {"openTime": 1672531200000, "open": 9.96, "high": 9.99, "low": 9.95, "close": 9.98, "volume": 1520.3, "closeTime": 1672531379999},
  {"openTime": 1672531380000, "open": 9.98, "high": 10.01, "low": 9.97, "close": 10.0, "volume": 980.1, "closeTime": 1672531559999}
]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	candles, err := LoadJSONFile(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].OpenTime)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 2, 59, 999000000, time.UTC), candles[0].CloseTime)
	assert.Equal(t, 10.0, candles[1].Close)
	assert.NoError(t, JSONProvider{}.ValidateData(candles))
}

func TestLoadJSONFile_Errors(t *testing.T) {
	_, err := LoadJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0644))
	_, err = LoadJSONFile(path)
	assert.Error(t, err)
}
