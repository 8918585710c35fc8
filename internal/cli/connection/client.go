package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yndnr/minikv/internal/resp"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("connection: client closed")

// Options configures a Client.
type Options struct {
	// DialTimeout bounds connection setup.
	DialTimeout time.Duration

	// Timeout bounds one request/reply round trip when ctx has no deadline.
	Timeout time.Duration

	// TLS enables TLS when set.
	TLS *tls.Config
}

// DefaultOptions returns the default client options.
func DefaultOptions() Options {
	return Options{
		DialTimeout: 5 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Client is a RESP connection to a minikv server. Requests are serialized.
type Client struct {
	addr string
	opts Options

	mu     sync.Mutex
	conn   net.Conn
	bw     *bufio.Writer
	r      *resp.Reader
	closed bool
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	d := &net.Dialer{Timeout: opts.DialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if opts.TLS != nil {
		td := &tls.Dialer{NetDialer: d, Config: opts.TLS}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{
		addr: addr,
		opts: opts,
		conn: conn,
		bw:   bufio.NewWriter(conn),
		r:    resp.NewReader(bufio.NewReader(conn)),
	}, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as a command array and returns the reply.
// A server error reply is returned as a resp.Error message, not as err.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Message, error) {
	return c.Send(ctx, resp.Command(args...))
}

// Send writes msg in one chunk and reads one reply.
func (c *Client) Send(ctx context.Context, msg resp.Message) (resp.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok && c.opts.Timeout > 0 {
		deadline = time.Now().Add(c.opts.Timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := resp.Write(c.bw, msg); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := c.bw.Flush(); err != nil {
		return nil, c.fail(ctx, err)
	}

	reply, err := c.r.ReadMessage()
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	return reply, nil
}

// fail prefers the context error over the deadline error it caused.
func (c *Client) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
