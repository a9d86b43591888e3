package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/config"
)

// loadWith runs a throwaway command with the run flags and returns the loaded config
func loadWith(t *testing.T, args ...string) (*config.RunConfig, error) {
	t.Helper()
	var cfg *config.RunConfig
	cmd := &cli.Command{
		Name:  "test",
		Flags: RunFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = LoadRunConfig(cmd, config.NewManager(), config.Env{})
			return err
		},
	}
	err := cmd.Run(context.Background(), append([]string{"test"}, args...))
	return cfg, err
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := loadWith(t)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultRunPeriod, cfg.Period)
	assert.Equal(t, strategy.VariantFixedCrossover, cfg.Policy.Variant)
	assert.NotNil(t, cfg.Policy.Crossover)
	assert.Equal(t, []string{config.FormatConsole}, cfg.Report.Formats)
}

func TestLoadRunConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbol: BTCUSDT
interval: 15m
period: lastMonth
balance: 2000
policy:
  variant: fixedCrossover
`), 0o644))

	cfg, err := loadWith(t,
		"--config", path,
		"--symbol", "ethusdt",
		"--policy", strategy.VariantMeanReversionTP,
		"--format", "csv", "--format", "json",
	)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, "15m", cfg.Interval, "file value kept")
	assert.Equal(t, 2000.0, cfg.Balance)
	assert.Equal(t, strategy.VariantMeanReversionTP, cfg.Policy.Variant)
	assert.NotNil(t, cfg.Policy.MeanReversion)
	assert.Nil(t, cfg.Policy.Crossover, "switching variant drops the old block")

	rc := ReportingConfig(cfg)
	assert.True(t, rc.CSVEnabled)
	assert.True(t, rc.JSONEnabled)
	assert.False(t, rc.EnableConsole)
	assert.False(t, rc.ExcelEnabled)

	run := RunContext(cfg)
	assert.Equal(t, "ETHUSDT", run.Symbol)
	assert.Equal(t, "lastMonth", run.Period)
}

func TestLoadRunConfig_Invalid(t *testing.T) {
	_, err := loadWith(t, "--interval", "7x")
	assert.Error(t, err)

	_, err = loadWith(t, "--policy", "martingale")
	assert.Error(t, err)
}
