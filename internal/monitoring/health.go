package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker exposes a liveness endpoint for a running session.
type HealthChecker struct {
	mu            sync.RWMutex
	sessionStatus string
	lastTick      time.Time
	totalValue    float64
	isConnected   bool
	errors        []string
}

type HealthStatus struct {
	Status        string    `json:"status"`
	SessionStatus string    `json:"session_status"`
	Timestamp     time.Time `json:"timestamp"`
	LastTick      time.Time `json:"last_tick"`
	TotalValue    float64   `json:"total_value"`
	IsConnected   bool      `json:"is_connected"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// SetConnected records broker connectivity.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordTick records the outcome of a completed session tick.
func (h *HealthChecker) RecordTick(sessionStatus string, totalValue float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionStatus = sessionStatus
	h.lastTick = time.Now()
	h.totalValue = totalValue
}

// RecordError appends an error to the health report, keeping the last few.
func (h *HealthChecker) RecordError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, fmt.Sprintf("%s: %v", time.Now().Format(time.RFC3339), err))
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:        status,
		SessionStatus: h.sessionStatus,
		Timestamp:     time.Now(),
		LastTick:      h.lastTick,
		TotalValue:    h.totalValue,
		IsConnected:   h.isConnected,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
