package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-backtester/internal/strategy"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRun_YAMLDefaults(t *testing.T) {
	path := writeFile(t, "run.yaml", `
symbol: ethusdt
policy:
  variant: fixedCrossover
`)

	cfg, err := NewManager().LoadRun(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultRunPeriod, cfg.Period)
	assert.Equal(t, DefaultInitialBalance, cfg.Balance)
	assert.Equal(t, DefaultDataRoot, cfg.DataRoot)
	assert.Equal(t, DefaultExchange, cfg.Exchange.Name)
	assert.Equal(t, []string{FormatConsole}, cfg.Report.Formats)
	assert.Equal(t, DefaultTimeZone, cfg.Report.TimeZone)
	require.NotNil(t, cfg.Policy.Crossover)
	assert.Equal(t, strategy.DefaultCrossoverParams(), *cfg.Policy.Crossover)
}

func TestLoadRun_JSON(t *testing.T) {
	path := writeFile(t, "run.json", `{
  "symbol": "BTCUSDT",
  "interval": "1h",
  "period": "2023",
  "balance": 250,
  "exchange": {"name": "bybit", "category": "linear"},
  "policy": {"variant": "meanReversionTP", "meanReversion": {
    "rsiPeriod": 14, "adxPeriod": 21, "rsiBuy": 30, "rsiSell": 70,
    "adxThreshold": 25, "stopPct": 1.5, "takeProfitPct": 3, "leverage": 1}},
  "report": {"formats": ["json", "xlsx"], "timeZone": "UTC"}
}`)

	cfg, err := NewManager().LoadRun(path)
	require.NoError(t, err)
	assert.Equal(t, "1h", cfg.Interval)
	assert.Equal(t, 250.0, cfg.Balance)
	assert.Equal(t, "bybit", cfg.Exchange.Name)
	assert.Equal(t, 21, cfg.Policy.MeanReversion.ADXPeriod)
	assert.True(t, cfg.Report.Wants(FormatXLSX))
	assert.False(t, cfg.Report.Wants(FormatConsole))
}

func TestLoadRun_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown key",
			file:    "run.yaml",
			content: "symbol: BTCUSDT\nleverage: 5\npolicy:\n  variant: fixedCrossover\n",
			errMsg:  "leverage",
		},
		{
			name:    "bad interval",
			file:    "run.yaml",
			content: "symbol: BTCUSDT\ninterval: 3x\npolicy:\n  variant: fixedCrossover\n",
			errMsg:  "Interval",
		},
		{
			name:    "bad period",
			file:    "run.yaml",
			content: "symbol: BTCUSDT\nperiod: lastDecade\npolicy:\n  variant: fixedCrossover\n",
			errMsg:  "Period",
		},
		{
			name:    "unknown variant",
			file:    "run.yaml",
			content: "symbol: BTCUSDT\npolicy:\n  variant: martingale\n",
			errMsg:  "martingale",
		},
		{
			name: "fast not below slow",
			file: "run.yaml",
			content: `symbol: BTCUSDT
policy:
  variant: fixedCrossover
  crossover:
    fastPeriod: 30
    slowPeriod: 20
    atrPeriod: 14
    stopAtrMult: 1.5
    leverage: 7
`,
			errMsg: "SlowPeriod",
		},
		{
			name:    "negative balance",
			file:    "run.json",
			content: `{"symbol": "BTCUSDT", "balance": -5, "policy": {"variant": "adaptiveRegime"}}`,
			errMsg:  "Balance",
		},
		{
			name:    "unknown format",
			file:    "run.json",
			content: `{"symbol": "BTCUSDT", "policy": {"variant": "adaptiveRegime"}, "report": {"formats": ["pdf"]}}`,
			errMsg:  "Formats",
		},
		{
			name:    "unknown exchange",
			file:    "run.json",
			content: `{"symbol": "BTCUSDT", "exchange": {"name": "kraken"}, "policy": {"variant": "adaptiveRegime"}}`,
			errMsg:  "Exchange.Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager().LoadRun(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRun_MissingFile(t *testing.T) {
	_, err := NewManager().LoadRun(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSweep_DefaultGrid(t *testing.T) {
	path := writeFile(t, "sweep.yaml", `
run:
  symbol: BTCUSDT
  policy:
    variant: meanReversionTP
`)

	cfg, err := NewManager().LoadSweep(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultSweepPeriod, cfg.Run.Period)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "profit", cfg.RankBy)
	assert.Equal(t, DefaultTopResults, cfg.Top)
	assert.Equal(t, DefaultAxes(strategy.VariantMeanReversionTP), cfg.Axes)
	assert.Equal(t, 243, cfg.Grid().Size(), "five axes of three values")
}

func TestLoadSweep_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name: "parameter of another variant",
			content: `run: {symbol: BTCUSDT, policy: {variant: meanReversionTP}}
axes:
  - {param: fastPeriod, values: [5, 7]}
`,
			errMsg: "fastPeriod",
		},
		{
			name: "duplicate axis",
			content: `run: {symbol: BTCUSDT, policy: {variant: fixedCrossover}}
axes:
  - {param: fastPeriod, values: [5]}
  - {param: fastPeriod, values: [7]}
`,
			errMsg: "swept twice",
		},
		{
			name: "empty axis",
			content: `run: {symbol: BTCUSDT, policy: {variant: fixedCrossover}}
axes:
  - {param: fastPeriod, values: []}
`,
			errMsg: "Values",
		},
		{
			name: "unknown ranking",
			content: `run: {symbol: BTCUSDT, policy: {variant: fixedCrossover}}
rankBy: drawdown
`,
			errMsg: "RankBy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager().LoadSweep(writeFile(t, "sweep.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultAxes_EveryVariantExpands(t *testing.T) {
	for _, variant := range strategy.Variants() {
		cfg, err := NewDefaultSweepConfig(variant)
		require.NoError(t, err, variant)
		require.NoError(t, NewValidator().Validate(cfg), variant)

		jobs, err := cfg.Grid().Jobs()
		require.NoError(t, err, variant)
		assert.Len(t, jobs, cfg.Grid().Size(), variant)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	m := NewManager()
	cfg, err := NewDefaultRunConfig(strategy.VariantRiskSizedTrailing)
	require.NoError(t, err)
	cfg.Exchange.APIKey = "secret"

	for _, name := range []string{"best.yaml", "best.json"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		require.NoError(t, m.SaveConfig(cfg, path))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "secret", "credentials are never written")

		loaded, err := m.LoadRun(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg.Policy, loaded.Policy, name)
		assert.Equal(t, cfg.Balance, loaded.Balance, name)
	}
}

func TestValidate_WrongType(t *testing.T) {
	assert.Error(t, NewValidator().Validate(struct{}{}))
}

func TestRunSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, RunSchema()))

	out := buf.String()
	assert.Contains(t, out, `"signal-backtester-run"`)
	assert.Contains(t, out, `"symbol"`)
	assert.Contains(t, out, `"policy"`)
	assert.Contains(t, out, `"required"`)

	buf.Reset()
	require.NoError(t, WriteSchema(&buf, SweepSchema()))
	assert.Contains(t, buf.String(), `"axes"`)
}
