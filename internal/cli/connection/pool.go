package connection

import (
	"context"
	"errors"

	pool "github.com/jolestar/go-commons-pool/v2"

	"github.com/yndnr/minikv/internal/resp"
)

// clientFactory creates pooled Clients for one server.
type clientFactory struct {
	addr string
	opts Options
}

func (f *clientFactory) MakeObject(ctx context.Context) (*pool.PooledObject, error) {
	c, err := Dial(ctx, f.addr, f.opts)
	if err != nil {
		return nil, err
	}
	return pool.NewPooledObject(c), nil
}

func (f *clientFactory) DestroyObject(_ context.Context, object *pool.PooledObject) error {
	c, ok := object.Object.(*Client)
	if !ok {
		return errors.New("connection: pooled object is not a client")
	}
	return c.Close()
}

func (f *clientFactory) ValidateObject(ctx context.Context, object *pool.PooledObject) bool {
	c, ok := object.Object.(*Client)
	if !ok {
		return false
	}
	reply, err := c.Do(ctx, "PING")
	return err == nil && resp.Equal(reply, resp.SimpleString("PONG"))
}

func (f *clientFactory) ActivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

func (f *clientFactory) PassivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

// Pool is a bounded pool of Clients to one server.
type Pool struct {
	p *pool.ObjectPool
}

// NewPool creates a pool holding at most size connections to addr.
func NewPool(ctx context.Context, addr string, opts Options, size int) *Pool {
	if size <= 0 {
		size = 1
	}

	cfg := pool.NewDefaultPoolConfig()
	cfg.MaxTotal = size
	cfg.MaxIdle = size
	cfg.TestOnCreate = true

	return &Pool{
		p: pool.NewObjectPool(ctx, &clientFactory{addr: addr, opts: opts}, cfg),
	}
}

// Get borrows a Client. Return it with Put, or Discard it after an I/O error.
func (p *Pool) Get(ctx context.Context) (*Client, error) {
	obj, err := p.p.BorrowObject(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*Client)
	if !ok {
		return nil, errors.New("connection: pooled object is not a client")
	}
	return c, nil
}

// Put returns a healthy Client to the pool.
func (p *Pool) Put(ctx context.Context, c *Client) error {
	return p.p.ReturnObject(ctx, c)
}

// Discard removes a broken Client from the pool.
func (p *Pool) Discard(ctx context.Context, c *Client) error {
	return p.p.InvalidateObject(ctx, c)
}

// Do borrows a Client, runs one command and returns the Client.
func (p *Pool) Do(ctx context.Context, args ...string) (resp.Message, error) {
	c, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := c.Do(ctx, args...)
	if err != nil {
		_ = p.Discard(ctx, c)
		return nil, err
	}
	return reply, p.Put(ctx, c)
}

// Active returns the number of borrowed Clients.
func (p *Pool) Active() int {
	return p.p.GetNumActive()
}

// Close destroys all pooled Clients.
func (p *Pool) Close(ctx context.Context) {
	p.p.Close(ctx)
}
