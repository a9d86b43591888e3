package logger

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWithConfig_WritesSessionFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLoggerWithConfig("btcusdt", "15m", Config{Dir: dir, Level: "debug"})
	require.NoError(t, err)

	l.Trade("entry", zap.String("side", "long"), zap.Float64("price", 100))
	path := l.GetLogPath()
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	assert.True(t, strings.HasPrefix(path, dir))
	assert.Contains(t, path, "BTCUSDT_15m_")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"kind":"trade"`)
	assert.Contains(t, string(content), "session ended")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
