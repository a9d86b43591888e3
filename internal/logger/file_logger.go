package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a session logger for one symbol and interval. It writes JSON lines
// to logs/<SYMBOL>_<interval>_<date>.log and console lines to stdout.
type Logger struct {
	*zap.Logger

	symbol   string
	interval string
	logDir   string
	logFile  *os.File
	mu       sync.Mutex
	closed   bool
}

// Config controls where and how much is logged
type Config struct {
	Dir     string
	Level   string
	Console bool
}

// DefaultConfig logs info and above to ./logs and stdout
func DefaultConfig() Config {
	return Config{Dir: "logs", Level: "info", Console: true}
}

// NewLogger creates a session logger for the specified symbol and interval
func NewLogger(symbol, interval string) (*Logger, error) {
	return NewLoggerWithConfig(symbol, interval, DefaultConfig())
}

// NewLoggerWithConfig creates a session logger with explicit settings
func NewLoggerWithConfig(symbol, interval string, cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		symbol:   strings.ToUpper(symbol),
		interval: interval,
		logDir:   cfg.Dir,
	}

	file, err := os.OpenFile(l.GetLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l.logFile = file

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level),
	}
	if cfg.Console {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...)).With(
		zap.String("symbol", l.symbol),
		zap.String("interval", l.interval),
	)

	l.Info("session started", zap.String("log_file", l.GetLogPath()))
	return l, nil
}

// New builds a stdout-only zap logger at the given level, for CLI tools without a session
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

// NewNop returns a logger that discards everything
func NewNop() *zap.Logger {
	return zap.NewNop()
}

// ParseLevel maps "debug", "info", "warn" and "error" to zap levels; empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Trade logs an executed entry or exit
func (l *Logger) Trade(msg string, fields ...zap.Field) {
	l.Info(msg, append([]zap.Field{zap.String("kind", "trade")}, fields...)...)
}

// Status logs periodic market status
func (l *Logger) Status(msg string, fields ...zap.Field) {
	l.Info(msg, append([]zap.Field{zap.String("kind", "status")}, fields...)...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error(context, zap.Error(err))
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	l.Info("session ended", zap.Time("ended", time.Now()))
	_ = l.Sync()

	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s_%s.log", l.symbol, l.interval, timestamp)
	return filepath.Join(l.logDir, filename)
}
