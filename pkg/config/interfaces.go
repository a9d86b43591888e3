package config

// Package config loads, defaults and validates run and sweep configuration files

// ConfigManager handles loading, validation and saving of configurations
type ConfigManager interface {
	// LoadRun reads a single-run configuration from a YAML or JSON file
	LoadRun(path string) (*RunConfig, error)

	// LoadSweep reads a parameter sweep configuration from a YAML or JSON file
	LoadSweep(path string) (*SweepConfig, error)

	// ValidateConfig validates a *RunConfig or *SweepConfig
	ValidateConfig(cfg interface{}) error

	// SaveConfig writes a configuration, the format follows the file extension
	SaveConfig(cfg interface{}, path string) error
}

// Validator interface for configuration validation
type Validator interface {
	Validate(cfg interface{}) error
}

// Common configuration constants
const (
	// Default parameter values
	DefaultInitialBalance = 1000.0
	DefaultInterval       = "3m"
	DefaultRunPeriod      = "lastYear"
	DefaultSweepPeriod    = "lastMonth"
	DefaultTimeZone       = "Europe/Berlin"
	DefaultTopResults     = 10

	// File and directory constants
	DefaultDataRoot = "data"
	DefaultExchange = "binance"
	ResultsDir      = "results"
	BestConfigFile  = "best.yaml"
)
