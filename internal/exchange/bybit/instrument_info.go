package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentInfo is the part of the instrument description that bounds order prices and sizes
type InstrumentInfo struct {
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	PriceFilter struct {
		MinPrice string `json:"minPrice"`
		MaxPrice string `json:"maxPrice"`
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
	LotSizeFilter struct {
		MaxOrderQty string `json:"maxOrderQty"`
		MinOrderQty string `json:"minOrderQty"`
		QtyStep     string `json:"qtyStep"`
		// spot instruments carry basePrecision instead of qtyStep
		BasePrecision string `json:"basePrecision"`
	} `json:"lotSizeFilter"`
}

// TickSize returns the price increment
func (ii *InstrumentInfo) TickSize() decimal.Decimal {
	return decimalOrZero(ii.PriceFilter.TickSize)
}

// QtyStep returns the quantity increment
func (ii *InstrumentInfo) QtyStep() decimal.Decimal {
	if ii.LotSizeFilter.QtyStep != "" {
		return decimalOrZero(ii.LotSizeFilter.QtyStep)
	}
	return decimalOrZero(ii.LotSizeFilter.BasePrecision)
}

// MinQty returns the smallest order quantity
func (ii *InstrumentInfo) MinQty() decimal.Decimal {
	return decimalOrZero(ii.LotSizeFilter.MinOrderQty)
}

// MaxQty returns the largest order quantity
func (ii *InstrumentInfo) MaxQty() decimal.Decimal {
	return decimalOrZero(ii.LotSizeFilter.MaxOrderQty)
}

// InstrumentManager caches instrument information per symbol
type InstrumentManager struct {
	client         *Client
	instruments    map[string]*InstrumentInfo
	fetchedAt      map[string]time.Time
	mutex          sync.RWMutex
	updateInterval time.Duration
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]*InstrumentInfo),
		fetchedAt:      make(map[string]time.Time),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo returns the cached instrument or fetches it when missing or stale
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	im.mutex.RLock()
	instrument, ok := im.instruments[symbol]
	fresh := ok && im.client.now().Sub(im.fetchedAt[symbol]) < im.updateInterval
	im.mutex.RUnlock()
	if fresh {
		return instrument, nil
	}

	instrument, err := im.fetchInstrumentInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}

	im.mutex.Lock()
	im.instruments[symbol] = instrument
	im.fetchedAt[symbol] = im.client.now()
	im.mutex.Unlock()

	return instrument, nil
}

func (im *InstrumentManager) fetchInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	params := map[string]interface{}{
		"category": im.client.category,
		"symbol":   symbol,
	}

	var instrument *InstrumentInfo
	err := im.client.Retry(ctx, func() error {
		result, err := im.client.call(ctx, endpointInstrumentInfo, params)
		if err != nil {
			return fmt.Errorf("failed to get instrument info: %w", err)
		}
		instrument, err = parseInstrumentInfoResponse(result, symbol)
		return err
	})
	return instrument, err
}

func parseInstrumentInfoResponse(response interface{}, targetSymbol string) (*InstrumentInfo, error) {
	var instrumentResult struct {
		Category string           `json:"category"`
		List     []InstrumentInfo `json:"list"`
	}
	if err := decodeResult(response, &instrumentResult); err != nil {
		return nil, err
	}

	for i := range instrumentResult.List {
		if instrumentResult.List[i].Symbol == targetSymbol {
			return &instrumentResult.List[i], nil
		}
	}
	return nil, fmt.Errorf("instrument %s not found", targetSymbol)
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
