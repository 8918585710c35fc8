package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/minikv/internal/server/httpserver/handler"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed sees the request first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type requestKey struct{}

// requestInfo is stored once per request by RequestID.
type requestInfo struct {
	id    string
	start time.Time
}

var (
	idMu    sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

func newRequestID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return "req-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestID assigns each request an ID, reusing an incoming X-Request-ID,
// and echoes it in the response header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &requestInfo{id: r.Header.Get("X-Request-ID"), start: time.Now()}
			if info.id == "" {
				info.id = newRequestID()
			}
			w.Header().Set("X-Request-ID", info.id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, info)))
		})
	}
}

// RequestIDFromContext returns the ID assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if info, ok := ctx.Value(requestKey{}).(*requestInfo); ok {
		return info.id
	}
	return ""
}

// AccessLog logs one line per request: 5xx at error, 4xx at warn and the
// rest, mostly probes and scrapes, at debug.
func AccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if info, ok := r.Context().Value(requestKey{}).(*requestInfo); ok {
				start = info.start
			}

			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := slog.LevelDebug
			switch {
			case rw.status >= 500:
				level = slog.LevelError
			case rw.status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"bytes", rw.written,
				"duration", time.Since(start),
				"client_ip", clientIP(r),
			)
		})
	}
}

// Recover turns a handler panic into a KV-SYS-5000 envelope.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reqID := RequestIDFromContext(r.Context())
				logger.Error("http handler panic",
					"request_id", reqID,
					"path", r.URL.Path,
					"panic", rec,
				)

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Error-Code", "KV-SYS-5000")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(handler.NewErrorResponse(reqID, "KV-SYS-5000", "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter records the status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// clientIP returns the peer host. The admin listener is meant for local
// probes and scrapers, so forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
