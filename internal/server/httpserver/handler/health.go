package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/minikv/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Ready != nil {
		if err := h.cfg.Ready(); err != nil {
			h.writeError(w, r, http.StatusServiceUnavailable, "KV-SYS-5030", err.Error())
			return
		}
	}

	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStats handles GET /stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Build:         buildinfo.Get(),
	}
	if h.cfg.Keyspace != nil {
		stats.Keys = h.cfg.Keyspace.Len()
		stats.Evicted = h.cfg.Keyspace.Evicted()
	}
	if h.cfg.Conns != nil {
		stats.Connections = h.cfg.Conns.ConnCount()
	}

	h.writeJSON(w, r, http.StatusOK, stats)
}
