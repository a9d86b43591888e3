package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds the settings read from the environment and an optional .env file
type Env struct {
	DataRoot      string
	LogLevel      string
	MetricsAddr   string
	BinanceKey    string
	BinanceSecret string
	BybitKey      string
	BybitSecret   string

	// TelegramToken and TelegramChatID enable paper signal alerts in live sessions
	TelegramToken  string
	TelegramChatID string
}

// LoadEnv loads the .env file at path when it exists, then reads the environment.
// Variables already set in the process win over the file.
func LoadEnv(path string) (Env, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	return Env{
		DataRoot:      getEnv("DATA_ROOT", ""),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		BinanceKey:    getEnv("BINANCE_API_KEY", ""),
		BinanceSecret: getEnv("BINANCE_API_SECRET", ""),
		BybitKey:      getEnv("BYBIT_API_KEY", ""),
		BybitSecret:   getEnv("BYBIT_API_SECRET", ""),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
	}, nil
}

// Apply copies the credentials of the configured exchange and a DATA_ROOT override into cfg.
// A data root set in the file is kept.
func (e Env) Apply(cfg *RunConfig) {
	if e.DataRoot != "" && (cfg.DataRoot == "" || cfg.DataRoot == DefaultDataRoot) {
		cfg.DataRoot = e.DataRoot
	}

	switch strings.ToLower(cfg.Exchange.Name) {
	case "bybit":
		cfg.Exchange.APIKey, cfg.Exchange.APISecret = e.BybitKey, e.BybitSecret
	default:
		cfg.Exchange.APIKey, cfg.Exchange.APISecret = e.BinanceKey, e.BinanceSecret
	}
}

// Notifies reports whether Telegram alerts are configured
func (e Env) Notifies() bool {
	return e.TelegramToken != "" && e.TelegramChatID != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
