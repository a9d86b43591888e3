package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// fileCandle is the on-disk record; times are epoch milliseconds
type fileCandle struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// FileStore keeps candle sets as JSON arrays under <root>/<SYMBOL>/<SYMBOL>_<interval>_<label>.json
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(root string) *FileStore {
	if root == "" {
		root = "data"
	}
	return &FileStore{root: root}
}

// Root returns the store directory
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file a candle set is kept in
func (s *FileStore) Path(symbol, interval, label string) string {
	symbol = strings.ToUpper(symbol)
	return filepath.Join(s.root, symbol, fmt.Sprintf("%s_%s_%s.json", symbol, interval, label))
}

// Exists reports whether the candle set has been saved
func (s *FileStore) Exists(symbol, interval, label string) bool {
	_, err := os.Stat(s.Path(symbol, interval, label))
	return err == nil
}

// Save writes candles and returns the file path
func (s *FileStore) Save(symbol, interval, label string, candles []types.Candle) (string, error) {
	path := s.Path(symbol, interval, label)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	records := make([]fileCandle, len(candles))
	for i, c := range candles {
		records[i] = fileCandle{
			OpenTime:  c.OpenTime.UnixMilli(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			CloseTime: c.CloseTime.UnixMilli(),
		}
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode candles: %w", err)
	}

	// write then rename so a reader never sees a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}

// Load reads a saved candle set
func (s *FileStore) Load(symbol, interval, label string) ([]types.Candle, error) {
	return LoadJSONFile(s.Path(symbol, interval, label))
}

// LoadJSONFile reads a candle JSON array from path
func LoadJSONFile(path string) ([]types.Candle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []fileCandle
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	candles := make([]types.Candle, len(records))
	for i, r := range records {
		candles[i] = types.Candle{
			OpenTime: time.UnixMilli(r.OpenTime).UTC(),
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
		}
		if r.CloseTime != 0 {
			candles[i].CloseTime = time.UnixMilli(r.CloseTime).UTC()
		}
	}
	InferCloseTimes(candles)
	return candles, nil
}

// JSONProvider implements DataProvider for files written by FileStore
type JSONProvider struct{}

// GetName returns the name of the data provider
func (JSONProvider) GetName() string {
	return "JSON Provider"
}

// LoadData reads the candle file at source
func (JSONProvider) LoadData(source string) ([]types.Candle, error) {
	return LoadJSONFile(source)
}

// ValidateData validates the integrity of loaded data
func (JSONProvider) ValidateData(data []types.Candle) error {
	return ValidateCandles(data)
}
