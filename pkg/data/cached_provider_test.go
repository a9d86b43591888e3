package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) LoadData(source string) ([]types.Candle, error) {
	args := m.Called(source)
	candles, _ := args.Get(0).([]types.Candle)
	return candles, args.Error(1)
}

func (m *mockProvider) ValidateData(data []types.Candle) error { return nil }
func (m *mockProvider) GetName() string { return "mock" }

func TestCachedProvider_ReloadsChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BTCUSDT_1m_lastMonth.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	inner := &mockProvider{}
	inner.On("LoadData", path).Return(minuteCandles(t0, 3), nil)
	p := NewCachedProvider(inner, nil)

	first, err := p.LoadData(path)
	require.NoError(t, err)
	second, err := p.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	inner.AssertNumberOfCalls(t, "LoadData", 1)

	second[0].Close = -1
	third, err := p.LoadData(path)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, third[0].Close, "callers get a copy")

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = p.LoadData(path)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "LoadData", 2)

	p.Invalidate(path)
	_, err = p.LoadData(path)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "LoadData", 3)
}

func TestCachedProvider_MissingFile(t *testing.T) {
	inner := &mockProvider{}
	p := NewCachedProvider(inner, nil)

	_, err := p.LoadData(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	inner.AssertNotCalled(t, "LoadData", mock.Anything)
}
