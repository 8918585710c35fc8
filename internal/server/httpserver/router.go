package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/minikv/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Keyspace feeds the key figures of GET /stats.
	Keyspace handler.KeyspaceSource

	// Conns feeds the connection count of GET /stats.
	Conns handler.ConnSource

	// Ready backs GET /ready. Nil means always ready.
	Ready func() error

	// Metrics serves GET /metrics.
	Metrics http.Handler

	Logger *slog.Logger
}

// NewRouter creates the admin handler wrapped in the middleware chain.
// Order: Recover -> RequestID -> AccessLog -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(handler.Config{
		Keyspace: cfg.Keyspace,
		Conns:    cfg.Conns,
		Ready:    cfg.Ready,
		Metrics:  cfg.Metrics,
		Logger:   logger,
	})

	return Chain(h,
		Recover(logger),
		RequestID(),
		AccessLog(logger),
	)
}
