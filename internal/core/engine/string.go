package engine

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage/memory"
)

// PING
//
// Always PONG; arguments are ignored.
func (e *Engine) ping(_ context.Context, _ []resp.Message) (resp.Message, error) {
	return resp.SimpleString("PONG"), nil
}

// ECHO <message>
func (e *Engine) echo(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	b, ok := args[0].(resp.BulkString)
	if !ok || b.Null {
		return nil, invalidArg("ECHO")
	}
	return b, nil
}

// SET <key> <value> [EX seconds | PX milliseconds | EXAT unix-seconds | PXAT unix-milliseconds]...
//
// Options may repeat; the last one wins.
func (e *Engine) set(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) < 2 {
		return nil, domain.ErrUnknownCommand
	}
	key, ok1 := bulkArg(args[0])
	value, ok2 := bulkArg(args[1])
	if !ok1 || !ok2 {
		return nil, domain.ErrInvalidArgument.WithMessage("invalid SET arguments")
	}

	opts, err := parseSetOptions(args[2:])
	if err != nil {
		return nil, err
	}

	e.store.Exec(func(tx *memory.Tx) {
		tx.Set(key, memory.StoredValue{
			Payload:   value,
			ExpiresAt: opts.expiresAt(tx.Now()),
		})
	})
	return resp.SimpleString("OK"), nil
}

type expiryKind int

const (
	expiryNone expiryKind = iota
	expiryRelative
	expiryAbsolute
)

type setOptions struct {
	kind expiryKind
	ms   int64
}

// expiresAt resolves the option against now.
func (o setOptions) expiresAt(now int64) int64 {
	switch o.kind {
	case expiryRelative:
		if o.ms > math.MaxInt64-now {
			return math.MaxInt64
		}
		return now + o.ms
	case expiryAbsolute:
		return o.ms
	default:
		return memory.NoExpiry
	}
}

func parseSetOptions(args []resp.Message) (setOptions, error) {
	var opts setOptions

	for i := 0; i < len(args); i += 2 {
		name, ok := bulkArg(args[i])
		if !ok {
			return opts, domain.ErrInvalidOptionFormat
		}
		if i+1 >= len(args) {
			return opts, domain.ErrInvalidArgument.WithMessage("invalid SET arguments")
		}
		raw, ok := bulkArg(args[i+1])
		if !ok {
			return opts, domain.ErrInvalidOptionFormat
		}

		var scale int64
		switch strings.ToUpper(name) {
		case "EX":
			opts.kind, scale = expiryRelative, 1000
		case "PX":
			opts.kind, scale = expiryRelative, 1
		case "EXAT":
			opts.kind, scale = expiryAbsolute, 1000
		case "PXAT":
			opts.kind, scale = expiryAbsolute, 1
		default:
			return opts, domain.ErrSyntax
		}

		n, err := strconv.ParseUint(raw, 10, 63)
		if err != nil || int64(n) > math.MaxInt64/scale {
			return opts, domain.ErrInvalidExpireTime
		}
		opts.ms = int64(n) * scale
	}

	return opts, nil
}

// GET <key>
func (e *Engine) get(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	key, ok := bulkArg(args[0])
	if !ok {
		return nil, domain.ErrInvalidArgument.WithMessage("invalid GET argument. Expected key")
	}

	var (
		v    memory.StoredValue
		live bool
	)
	e.store.Exec(func(tx *memory.Tx) {
		v, live = tx.Get(key)
	})
	if !live {
		return resp.NullBulk(), nil
	}
	return resp.Bulk(v.Payload), nil
}

// INCR <key>
func (e *Engine) incr(_ context.Context, args []resp.Message) (resp.Message, error) {
	return e.incrBy(args, 1, "INC")
}

// DECR <key>
func (e *Engine) decr(_ context.Context, args []resp.Message) (resp.Message, error) {
	return e.incrBy(args, -1, "DEC")
}

func (e *Engine) incrBy(args []resp.Message, delta int64, label string) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	key, ok := bulkArg(args[0])
	if !ok {
		return nil, invalidArg(label)
	}

	var (
		result int64
		err    error
	)
	e.store.Exec(func(tx *memory.Tx) {
		v, st := tx.Lookup(key)
		switch st {
		case memory.Missing:
			err = domain.ErrKeyNotFound
			return
		case memory.Expired:
			err = domain.ErrKeyExpired
			return
		}

		n, perr := strconv.ParseInt(v.Payload, 10, 64)
		if perr != nil {
			err = domain.ErrNotInteger
			return
		}
		if (delta > 0 && n > math.MaxInt64-delta) || (delta < 0 && n < math.MinInt64-delta) {
			err = domain.ErrOverflow
			return
		}

		result = n + delta
		v.Payload = strconv.FormatInt(result, 10)
		tx.Set(key, v)
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(result), nil
}
