package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxRecentErrors = 10

// HealthChecker tracks the state of a live session for the health endpoint
type HealthChecker struct {
	mu          sync.RWMutex
	started     time.Time
	staleAfter  time.Duration
	lastCandle  time.Time
	lastPrice   float64
	isConnected bool
	errors      []string
	now         func() time.Time
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastCandle  time.Time `json:"last_candle"`
	LastPrice   float64   `json:"last_price"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded when no candle arrived within staleAfter
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		started:    time.Now(),
		staleAfter: staleAfter,
		errors:     make([]string, 0),
		now:        time.Now,
	}
}

func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordCandle marks a candle arrival and clears the recent errors
func (h *HealthChecker) RecordCandle(closeTime time.Time, price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCandle = closeTime
	h.lastPrice = price
	h.errors = h.errors[:0]
}

// RecordError keeps the most recent errors until the next candle
func (h *HealthChecker) RecordError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[len(h.errors)-maxRecentErrors:]
	}
}

// Status computes the current health
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := "healthy"
	if !h.isConnected || (h.staleAfter > 0 && now.Sub(h.lastCandle) > h.staleAfter) {
		status = "degraded"
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:      status,
		Timestamp:   now,
		LastCandle:  h.lastCandle,
		LastPrice:   h.lastPrice,
		IsConnected: h.isConnected,
		Uptime:      now.Sub(h.started).Round(time.Second).String(),
		Errors:      append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(health)
}
