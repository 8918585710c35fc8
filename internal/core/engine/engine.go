package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage/memory"
	"github.com/yndnr/minikv/internal/telemetry/logger"
)

// Observer receives per-command and per-snapshot measurements.
type Observer interface {
	// ObserveCommand records one executed command. result is "ok" or an error code.
	ObserveCommand(command, result string, elapsed time.Duration)

	// ObserveSnapshot records one snapshot save or load.
	ObserveSnapshot(op string, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCommand(string, string, time.Duration) {}
func (nopObserver) ObserveSnapshot(string, error, time.Duration) {}

type handlerFunc func(ctx context.Context, args []resp.Message) (resp.Message, error)

// Engine executes commands against a Store.
type Engine struct {
	store    *memory.Store
	sink     SnapshotSink
	logger   *slog.Logger
	observer Observer

	handlers map[string]handlerFunc
}

// Option configures the Engine.
type Option func(*Engine)

// WithSnapshotSink sets the sink used by SAVE and Restore.
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// New creates an Engine over store.
func New(store *memory.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.Default(),
		observer: nopObserver{},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[string]handlerFunc{
		"PING":    e.ping,
		"ECHO":    e.echo,
		"SET":     e.set,
		"GET":     e.get,
		"INCR":    e.incr,
		"DECR":    e.decr,
		"EXISTS":  e.exists,
		"DEL":     e.del,
		"TTL":     e.ttl,
		"PTTL":    e.pttl,
		"EXPIRE":  e.expire,
		"PERSIST": e.persist,
		"DBSIZE":  e.dbsize,
		"KEYS":    e.keys,
		"LPUSH":   e.lpush,
		"RPUSH":   e.rpush,
		"LRANGE":  e.lrange,
		"SAVE":    e.save,
	}

	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *memory.Store {
	return e.store
}

// Execute runs one decoded request and returns the reply.
func (e *Engine) Execute(ctx context.Context, msg resp.Message) (reply resp.Message) {
	start := time.Now()
	name := "unknown"
	var err error

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command panicked",
				"command", name,
				"conn_id", logger.ConnIDFromContext(ctx),
				"panic", r)
			err = domain.ErrInternal
			reply = errorReply(err)
		}
		result := "ok"
		if err != nil {
			if result = domain.GetErrorCode(err); result == "" {
				result = "error"
			}
		}
		e.observer.ObserveCommand(name, result, time.Since(start))
	}()

	reply, err = e.dispatch(ctx, msg, &name)
	if err != nil {
		e.logger.Debug("command failed",
			"command", name,
			"conn_id", logger.ConnIDFromContext(ctx),
			"error", err)
		return errorReply(err)
	}
	return reply
}

func (e *Engine) dispatch(ctx context.Context, msg resp.Message, name *string) (resp.Message, error) {
	switch m := msg.(type) {
	case resp.SimpleString:
		if strings.EqualFold(string(m), "PING") {
			*name = "PING"
			return resp.SimpleString("PONG"), nil
		}
		return nil, domain.ErrUnknownCommand

	case resp.Array:
		if len(m) == 0 {
			return nil, domain.ErrInvalidCommandFormat
		}
		b, ok := m[0].(resp.BulkString)
		if !ok || b.Null {
			return nil, domain.ErrInvalidCommandFormat
		}
		cmd := normalizeCommandName(b.Data)
		h, ok := e.handlers[cmd]
		if !ok {
			return nil, domain.ErrUnknownCommand
		}
		*name = cmd
		return h(ctx, m[1:])

	default:
		return nil, domain.ErrUnknownCommand
	}
}

// errorReply renders err as an "ERR ..." reply.
func errorReply(err error) resp.Message {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return resp.Error("ERR " + de.Text())
	}
	return resp.Error("ERR " + err.Error())
}

func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}

// bulkArg returns the text of a present bulk string argument.
func bulkArg(m resp.Message) (string, bool) {
	b, ok := m.(resp.BulkString)
	if !ok || b.Null {
		return "", false
	}
	return string(b.Data), true
}

func invalidArg(command string) *domain.DomainError {
	return domain.ErrInvalidArgument.WithMessage(fmt.Sprintf("invalid %s argument", command))
}

func wrongArity(command string) *domain.DomainError {
	return domain.ErrWrongArity.WithMessage(fmt.Sprintf("wrong number of arguments for '%s' command", command))
}
