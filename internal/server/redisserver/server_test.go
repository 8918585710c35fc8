package redisserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/minikv/internal/core/engine"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage/memory"
)

type countingMetrics struct {
	opened, closed, limited, protocol atomic.Int64
}

func (m *countingMetrics) ConnOpened()         { m.opened.Add(1) }
func (m *countingMetrics) ConnClosed()         { m.closed.Add(1) }
func (m *countingMetrics) CommandRateLimited() { m.limited.Add(1) }
func (m *countingMetrics) ProtocolError()      { m.protocol.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Addr = "127.0.0.1:0"

	eng := engine.New(memory.New(), engine.WithLogger(discardLogger()))
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	srv := New(cfg, eng, opts...)

	if err := srv.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *resp.Reader
}

func dial(t *testing.T, srv *Server) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, r: resp.NewReader(bufio.NewReader(conn))}
}

func (c *client) do(args ...string) resp.Message {
	c.t.Helper()
	return c.raw(resp.Encode(resp.Command(args...)))
}

func (c *client) raw(b []byte) resp.Message {
	c.t.Helper()
	_ = c.conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.conn.Write(b); err != nil {
		c.t.Fatalf("Write() error = %v", err)
	}
	msg, err := c.r.ReadMessage()
	if err != nil {
		c.t.Fatalf("ReadMessage() error = %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ============================================================================
// Request handling
// ============================================================================

func TestServer_Commands(t *testing.T) {
	srv := startServer(t, nil)
	c := dial(t, srv)

	tests := []struct {
		args []string
		want resp.Message
	}{
		{[]string{"PING"}, resp.SimpleString("PONG")},
		{[]string{"SET", "k", "v"}, resp.SimpleString("OK")},
		{[]string{"GET", "k"}, resp.Bulk("v")},
		{[]string{"GET", "missing"}, resp.NullBulk()},
		{[]string{"INCR", "missing"}, resp.Error("ERR key does not exist")},
		{[]string{"SET", "n", "0"}, resp.SimpleString("OK")},
		{[]string{"INCR", "n"}, resp.Integer(1)},
		{[]string{"RPUSH", "l", "a", "b"}, resp.Integer(2)},
		{[]string{"LRANGE", "l", "0", "1"}, resp.Array{resp.Bulk("a"), resp.Bulk("b")}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got := c.do(tt.args...)
			if !resp.Equal(got, tt.want) {
				t.Errorf("reply = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestServer_UndecodableKeepsConnection(t *testing.T) {
	m := &countingMetrics{}
	srv := startServer(t, nil, WithMetrics(m))
	c := dial(t, srv)

	got := c.raw([]byte("*2\r\n$3\r\nGET\r\n"))
	if !resp.Equal(got, resp.Error("ERR unknown command")) {
		t.Errorf("reply = %#v, want -ERR unknown command", got)
	}
	if m.protocol.Load() != 1 {
		t.Errorf("ProtocolError count = %d, want 1", m.protocol.Load())
	}

	if got := c.do("PING"); !resp.Equal(got, resp.SimpleString("PONG")) {
		t.Errorf("PING after bad input = %#v, want PONG", got)
	}
}

func TestServer_Quit(t *testing.T) {
	srv := startServer(t, nil)
	c := dial(t, srv)

	if got := c.do("quit"); !resp.Equal(got, resp.SimpleString("OK")) {
		t.Fatalf("QUIT reply = %#v, want +OK", got)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.r.ReadMessage(); err == nil {
		t.Error("ReadMessage() after QUIT succeeded, want closed connection")
	}
	waitFor(t, func() bool { return srv.ConnCount() == 0 })
}

func TestServer_RateLimit(t *testing.T) {
	m := &countingMetrics{}
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	srv := startServer(t, cfg, WithMetrics(m))
	c := dial(t, srv)

	for i := 0; i < 2; i++ {
		if got := c.do("PING"); !resp.Equal(got, resp.SimpleString("PONG")) {
			t.Fatalf("PING %d = %#v, want PONG", i, got)
		}
	}
	if got := c.do("PING"); !resp.Equal(got, resp.Error("ERR too many requests")) {
		t.Errorf("third PING = %#v, want -ERR too many requests", got)
	}
	if m.limited.Load() != 1 {
		t.Errorf("CommandRateLimited count = %d, want 1", m.limited.Load())
	}

	// Limits are per connection.
	other := dial(t, srv)
	if got := other.do("PING"); !resp.Equal(got, resp.SimpleString("PONG")) {
		t.Errorf("PING on new connection = %#v, want PONG", got)
	}
}

func TestServer_ConcurrentIncr(t *testing.T) {
	srv := startServer(t, nil)
	if got := dial(t, srv).do("SET", "counter", "0"); !resp.Equal(got, resp.SimpleString("OK")) {
		t.Fatalf("SET counter 0 = %#v, want OK", got)
	}

	const clients, perClient = 8, 50
	var wg sync.WaitGroup
	errCh := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.Dial("tcp", srv.Addr().String())
			if err != nil {
				errCh <- err
				return
			}
			defer conn.Close()
			r := resp.NewReader(bufio.NewReader(conn))
			req := resp.Encode(resp.Command("INCR", "counter"))
			for j := 0; j < perClient; j++ {
				if _, err := conn.Write(req); err != nil {
					errCh <- err
					return
				}
				reply, err := r.ReadMessage()
				if err != nil {
					errCh <- err
					return
				}
				if _, ok := reply.(resp.Integer); !ok {
					errCh <- fmt.Errorf("INCR reply = %#v, want integer", reply)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("client error = %v", err)
	}

	c := dial(t, srv)
	want := resp.Bulk(fmt.Sprint(clients * perClient))
	if got := c.do("GET", "counter"); !resp.Equal(got, want) {
		t.Errorf("GET counter = %#v, want %#v", got, want)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestServer_ShutdownClosesConnections(t *testing.T) {
	m := &countingMetrics{}
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	eng := engine.New(memory.New(), engine.WithLogger(discardLogger()))
	srv := New(cfg, eng, WithLogger(discardLogger()), WithMetrics(m))

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(context.Background()) }()

	c := dial(t, srv)
	c.do("PING")
	waitFor(t, func() bool { return srv.ConnCount() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() error = %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after Shutdown")
	}

	if srv.ConnCount() != 0 {
		t.Errorf("ConnCount() = %d, want 0", srv.ConnCount())
	}
	if m.opened.Load() != 1 || m.closed.Load() != 1 {
		t.Errorf("opened/closed = %d/%d, want 1/1", m.opened.Load(), m.closed.Load())
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	srv := startServer(t, cfg)
	c := dial(t, srv)

	c.do("PING")
	waitFor(t, func() bool { return srv.ConnCount() == 0 })
}

func TestServer_ListenInvalidAddr(t *testing.T) {
	srv := New(&Config{Addr: "256.0.0.1:bad"}, nil, WithLogger(discardLogger()))
	if err := srv.Listen(); err == nil {
		t.Error("Listen() error = nil, want error")
	}
	if srv.Addr() != nil {
		t.Errorf("Addr() = %v, want nil", srv.Addr())
	}
}

func TestIsQuit(t *testing.T) {
	tests := []struct {
		name string
		msg  resp.Message
		want bool
	}{
		{"array", resp.Command("QUIT"), true},
		{"lowercase", resp.Command("quit"), true},
		{"inline", resp.SimpleString("QUIT"), true},
		{"other", resp.Command("PING"), false},
		{"empty", resp.Array{}, false},
		{"null bulk", resp.Array{resp.NullBulk()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuit(tt.msg); got != tt.want {
				t.Errorf("isQuit() = %v, want %v", got, tt.want)
			}
		})
	}
}
