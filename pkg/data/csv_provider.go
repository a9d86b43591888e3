package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/ducminhle1904/signal-backtester/internal/errors"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// CSVProvider implements DataProvider for CSV files with a header row
type CSVProvider struct {
	format   CSVColumnMapping
	interval time.Duration
	logger   *zap.Logger
}

// CSVOption configures a CSVProvider
type CSVOption func(*CSVProvider)

// WithCSVFormat sets the column layout
func WithCSVFormat(format CSVColumnMapping) CSVOption {
	return func(p *CSVProvider) { p.format = format }
}

// WithCandleInterval fills CloseTime as open time plus interval minus 1ms
func WithCandleInterval(interval time.Duration) CSVOption {
	return func(p *CSVProvider) { p.interval = interval }
}

// WithCSVLogger sets the logger used for skipped rows
func WithCSVLogger(logger *zap.Logger) CSVOption {
	return func(p *CSVProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider(opts ...CSVOption) *CSVProvider {
	p := &CSVProvider{
		format: DefaultCSVFormat,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.Candle, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer file.Close()

	return p.Read(file)
}

// Read parses CSV rows from r. Rows with missing columns, unparsable numbers
// or inconsistent prices are logged and skipped.
func (p *CSVProvider) Read(r io.Reader) ([]types.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	var data []types.Candle
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		candle, err := p.parseRecord(record)
		if err != nil {
			p.logger.Warn("skipping CSV row", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		data = append(data, candle)
	}

	if p.interval == 0 {
		InferCloseTimes(data)
	}
	return data, nil
}

func (p *CSVProvider) parseRecord(record []string) (types.Candle, error) {
	format := p.format
	if len(record) < format.MinColumns {
		return types.Candle{}, fmt.Errorf("expected %d columns, got %d", format.MinColumns, len(record))
	}

	openTime, err := p.parseTime(record[format.TimestampCol])
	if err != nil {
		return types.Candle{}, err
	}

	cols := []int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol}
	var values [5]float64
	for i, col := range cols {
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("invalid number %q in column %d", record[col], col)
		}
		values[i] = v
	}

	candle := types.Candle{
		OpenTime: openTime,
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
	}
	if p.interval > 0 {
		candle.CloseTime = openTime.Add(p.interval - time.Millisecond)
	}

	if err := candle.ValidatePrices(); err != nil {
		return types.Candle{}, err
	}
	if candle.High < candle.Open || candle.High < candle.Close || candle.Low > candle.Open || candle.Low > candle.Close {
		return types.Candle{}, fmt.Errorf("open/close outside high/low range")
	}
	return candle, nil
}

func (p *CSVProvider) parseTime(s string) (time.Time, error) {
	if p.format.DateFormat == "ms" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(p.format.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// InferCloseTimes fills missing close times from the smallest gap between
// consecutive open times. A single candle has no gap and keeps a zero close time.
func InferCloseTimes(candles []types.Candle) {
	var step time.Duration
	for i := 1; i < len(candles); i++ {
		gap := candles[i].OpenTime.Sub(candles[i-1].OpenTime)
		if gap > 0 && (step == 0 || gap < step) {
			step = gap
		}
	}
	if step == 0 {
		return
	}
	for i := range candles {
		if candles[i].CloseTime.IsZero() {
			candles[i].CloseTime = candles[i].OpenTime.Add(step - time.Millisecond)
		}
	}
}

// ValidateData checks every candle and the time sequence
func (p *CSVProvider) ValidateData(data []types.Candle) error {
	return ValidateCandles(data)
}

// ValidateCandles rejects empty or inconsistent candle sets. Failures wrap ErrMalformedData.
func ValidateCandles(data []types.Candle) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: no data provided", apperrors.ErrMalformedData)
	}
	if err := types.ValidateCandles(data); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrMalformedData, err)
	}
	return nil
}
