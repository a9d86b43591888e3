package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output file names inside a run directory
const (
	TradesCSVFile      = "trades.csv"
	TradesXLSXFile     = "trades.xlsx"
	ResultJSONFile     = "result.json"
	LeaderboardCSVFile = "leaderboard.csv"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns <root>/<SYMBOL>_<interval>, root defaults to results
func (p *DefaultPathManager) GetDefaultOutputDir(root, symbol, interval string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	if root == "" {
		root = "results"
	}

	return filepath.Join(root, fmt.Sprintf("%s_%s", s, i))
}

// EnsureDirectoryExists creates the parent directory of path
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	return ensureParent(path)
}

// DefaultOutputDir is GetDefaultOutputDir of the default path manager
func DefaultOutputDir(root, symbol, interval string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(root, symbol, interval)
}

func ensureParent(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
