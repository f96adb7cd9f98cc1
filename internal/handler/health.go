package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports process liveness and readiness.
type HealthHandler struct {
	started time.Time
	ready   func() bool
}

// NewHealthHandler creates a new health handler. The ready func reports
// whether downstream connections are up; nil means always ready.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{
		started: time.Now(),
		ready:   ready,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
