package redisserver

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/telemetry/logger"
	"github.com/yndnr/minikv/pkg/cmap"
)

var (
	replyUnknownCommand = resp.Error("ERR " + domain.ErrUnknownCommand.Text())
	replyRateLimited    = resp.Error("ERR " + domain.ErrRateLimited.Text())
	replyOK             = resp.SimpleString("OK")
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("redisserver: server closed")

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string
	// TLSConfig enables TLS on the listener when set.
	TLSConfig *tls.Config
	// IdleTimeout closes connections with no request for this long. Zero disables it.
	IdleTimeout time.Duration
	// WriteTimeout bounds writing one reply. Zero disables it.
	WriteTimeout time.Duration
	// ReadBufferSize is the largest request accepted in one read.
	ReadBufferSize int
	// RateLimit is the per-connection command rate in commands/second. Zero disables limiting.
	RateLimit float64
	// RateBurst is the limiter burst. Defaults to max(1, RateLimit).
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:6379",
		WriteTimeout:   10 * time.Second,
		ReadBufferSize: 64 << 10,
	}
}

// Executor runs one decoded request.
type Executor interface {
	Execute(ctx context.Context, msg resp.Message) resp.Message
}

// Metrics receives connection-level events.
type Metrics interface {
	ConnOpened()
	ConnClosed()
	CommandRateLimited()
	ProtocolError()
}

type nopMetrics struct{}

func (nopMetrics) ConnOpened()         {}
func (nopMetrics) ConnClosed()         {}
func (nopMetrics) CommandRateLimited() {}
func (nopMetrics) ProtocolError()      {}

// Server represents the RESP server.
type Server struct {
	cfg     *Config
	exec    Executor
	logger  *slog.Logger
	metrics Metrics

	lnMu sync.Mutex
	ln   net.Listener

	conns   *cmap.Map[*Conn]
	running atomic.Bool
	wg      sync.WaitGroup

	idMu    sync.Mutex
	entropy io.Reader
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the connection metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Conn represents a single client connection.
type Conn struct {
	id      string
	netConn net.Conn
	bw      *bufio.Writer
	limiter *rate.Limiter
	opened  time.Time

	closed atomic.Bool
}

// ID returns the connection ULID.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Close closes the connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// New creates a new RESP server.
func New(cfg *Config, exec Executor, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultConfig().ReadBufferSize
	}

	s := &Server{
		cfg:     cfg,
		exec:    exec,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		conns:   cmap.New[*Conn](),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Listen binds the listener without serving.
func (s *Server) Listen() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()

	if s.ln != nil {
		return nil
	}

	var (
		ln  net.Listener
		err error
	)
	if s.cfg.TLSConfig != nil {
		ln, err = tls.Listen("tcp", s.cfg.Addr, s.cfg.TLSConfig)
	} else {
		ln, err = net.Listen("tcp", s.cfg.Addr)
	}
	if err != nil {
		return err
	}

	s.ln = ln
	s.running.Store(true)
	s.logger.Info("redis listener started",
		"addr", ln.Addr().String(),
		"tls", s.cfg.TLSConfig != nil)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start listens and serves in the background.
// errCh receives the Serve error, if any; it may be nil.
func (s *Server) Start(ctx context.Context, errCh chan<- error) error {
	if err := s.Listen(); err != nil {
		return err
	}
	go func() {
		if err := s.Serve(ctx); err != nil && !errors.Is(err, ErrServerClosed) {
			s.logger.Error("redis server error", "error", err)
			if errCh != nil {
				errCh <- err
			}
		}
	}()
	return nil
}

// Serve accepts connections until Shutdown or a listener failure.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.lnMu.Lock()
	ln := s.ln
	s.lnMu.Unlock()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			select {
			case <-ctx.Done():
				return ErrServerClosed
			default:
			}
			return err
		}

		c := s.newConn(nc)
		s.conns.Set(c.id, c)
		s.metrics.ConnOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(c)
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) newConn(nc net.Conn) *Conn {
	s.idMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	s.idMu.Unlock()

	c := &Conn{
		id:      id,
		netConn: nc,
		bw:      bufio.NewWriter(nc),
		opened:  time.Now(),
	}

	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = max(1, int(s.cfg.RateLimit))
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	return c
}

func (s *Server) release(c *Conn) {
	_ = c.Close()
	if _, ok := s.conns.Pop(c.id); ok {
		s.metrics.ConnClosed()
	}
	s.logger.Debug("connection closed",
		"conn_id", c.id,
		"remote", c.RemoteAddr().String(),
		"duration", time.Since(c.opened))
}

// ConnCount returns the number of open connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines or ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error

	s.lnMu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	s.lnMu.Unlock()

	for _, c := range s.conns.Snapshot() {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("redis listener stopped")
	return firstErr
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	ctx = logger.WithConnID(ctx, c.id)
	s.logger.Debug("connection accepted",
		"conn_id", c.id,
		"remote", c.RemoteAddr().String())

	buf := make([]byte, s.cfg.ReadBufferSize)

	for {
		if s.cfg.IdleTimeout > 0 {
			if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				return
			}
		}

		n, err := c.netConn.Read(buf)
		if n > 0 {
			reply, quit := s.handle(ctx, c, buf[:n])
			if werr := s.write(c, reply); werr != nil {
				s.logger.Debug("write failed", "conn_id", c.id, "error", werr)
				return
			}
			if quit {
				return
			}
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &netErr) && netErr.Timeout():
				s.logger.Debug("connection idle timeout", "conn_id", c.id)
			default:
				s.logger.Debug("connection read error", "conn_id", c.id, "error", err)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// handle turns one request chunk into a reply. quit reports a QUIT request.
func (s *Server) handle(ctx context.Context, c *Conn, chunk []byte) (reply resp.Message, quit bool) {
	msg, err := resp.Decode(chunk)
	if err != nil {
		s.metrics.ProtocolError()
		s.logger.Debug("request decode failed", "conn_id", c.id, "error", err)
		return replyUnknownCommand, false
	}

	if isQuit(msg) {
		return replyOK, true
	}

	if c.limiter != nil && !c.limiter.Allow() {
		s.metrics.CommandRateLimited()
		return replyRateLimited, false
	}

	return s.exec.Execute(ctx, msg), false
}

func (s *Server) write(c *Conn, reply resp.Message) error {
	if s.cfg.WriteTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	if err := resp.Write(c.bw, reply); err != nil {
		return err
	}
	return c.bw.Flush()
}

func isQuit(msg resp.Message) bool {
	switch m := msg.(type) {
	case resp.SimpleString:
		return strings.EqualFold(string(m), "QUIT")
	case resp.Array:
		if len(m) == 0 {
			return false
		}
		b, ok := m[0].(resp.BulkString)
		return ok && !b.Null && strings.EqualFold(string(b.Data), "QUIT")
	}
	return false
}
