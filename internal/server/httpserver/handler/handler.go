package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// KeyspaceSource reports keyspace figures.
// *memory.Store satisfies it.
type KeyspaceSource interface {
	Len() int
	Evicted() uint64
}

// ConnSource reports the number of open client connections.
// *redisserver.Server satisfies it.
type ConnSource interface {
	ConnCount() int
}

// Config holds the handler dependencies.
type Config struct {
	Keyspace KeyspaceSource
	Conns    ConnSource

	// Ready reports whether the server accepts traffic. Nil means always ready.
	Ready func() error

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler

	Logger *slog.Logger
}

// Handler serves the admin endpoints.
type Handler struct {
	cfg     Config
	logger  *slog.Logger
	started time.Time
	mux     *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /stats", h.handleStats)

	if h.cfg.Metrics != nil {
		h.mux.Handle("GET /metrics", h.cfg.Metrics)
	}
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := requestIDOf(w, r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := requestIDOf(w, r)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message)); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// requestIDOf returns the request ID set by the RequestID middleware.
func requestIDOf(w http.ResponseWriter, r *http.Request) string {
	if id := w.Header().Get("X-Request-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
