package engine

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage/memory"
)

// keyArgs validates that every argument is a present bulk string.
func keyArgs(args []resp.Message, command string) ([]string, error) {
	keys := make([]string, 0, len(args))
	for _, a := range args {
		k, ok := bulkArg(a)
		if !ok {
			return nil, invalidArg(command)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// EXISTS <key> [key ...]
func (e *Engine) exists(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	keys, err := keyArgs(args, "EXISTS")
	if err != nil {
		return nil, err
	}

	var n int64
	e.store.Exec(func(tx *memory.Tx) {
		for _, k := range keys {
			if _, ok := tx.Get(k); ok {
				n++
			}
		}
	})
	return resp.Integer(n), nil
}

// DEL <key> [key ...]
func (e *Engine) del(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	keys, err := keyArgs(args, "DEL")
	if err != nil {
		return nil, err
	}

	var n int64
	e.store.Exec(func(tx *memory.Tx) {
		for _, k := range keys {
			if tx.Delete(k) {
				n++
			}
		}
	})
	return resp.Integer(n), nil
}

// TTL <key>
//
// Returns:
//   - -2 if the key does not exist or has expired
//   - -1 if the key exists but has no expiry
//   - remaining seconds otherwise, rounded to the nearest second with
//     halves rounded up, as Redis does (1499ms is 1, 1500ms is 2, 400ms is 0)
func (e *Engine) ttl(_ context.Context, args []resp.Message) (resp.Message, error) {
	ms, err := e.remaining(args, "TTL")
	if err != nil {
		return nil, err
	}
	if ms < 0 {
		return resp.Integer(ms), nil
	}
	return resp.Integer((ms + 500) / 1000), nil
}

// PTTL <key>
func (e *Engine) pttl(_ context.Context, args []resp.Message) (resp.Message, error) {
	ms, err := e.remaining(args, "PTTL")
	if err != nil {
		return nil, err
	}
	return resp.Integer(ms), nil
}

func (e *Engine) remaining(args []resp.Message, command string) (int64, error) {
	if len(args) != 1 {
		return 0, wrongArity(command)
	}
	key, ok := bulkArg(args[0])
	if !ok {
		return 0, invalidArg(command)
	}

	var ms int64
	e.store.Exec(func(tx *memory.Tx) {
		v, ok := tx.Get(key)
		switch {
		case !ok:
			ms = -2
		case !v.HasExpiry():
			ms = -1
		default:
			ms = v.ExpiresAt - tx.Now()
		}
	})
	return ms, nil
}

// EXPIRE <key> <seconds>
func (e *Engine) expire(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) != 2 {
		return nil, wrongArity("EXPIRE")
	}
	key, ok1 := bulkArg(args[0])
	raw, ok2 := bulkArg(args[1])
	if !ok1 || !ok2 {
		return nil, invalidArg("EXPIRE")
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds > math.MaxInt64/1000 || seconds < math.MinInt64/1000 {
		return nil, domain.ErrNotIntegerOrRange
	}

	var n int64
	e.store.Exec(func(tx *memory.Tx) {
		v, ok := tx.Get(key)
		if !ok {
			return
		}
		n = 1
		if seconds <= 0 {
			tx.Delete(key)
			return
		}
		v.ExpiresAt = setOptions{kind: expiryRelative, ms: seconds * 1000}.expiresAt(tx.Now())
		tx.Set(key, v)
	})
	return resp.Integer(n), nil
}

// PERSIST <key>
func (e *Engine) persist(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) != 1 {
		return nil, wrongArity("PERSIST")
	}
	key, ok := bulkArg(args[0])
	if !ok {
		return nil, invalidArg("PERSIST")
	}

	var n int64
	e.store.Exec(func(tx *memory.Tx) {
		v, ok := tx.Get(key)
		if !ok || !v.HasExpiry() {
			return
		}
		v.ExpiresAt = memory.NoExpiry
		tx.Set(key, v)
		n = 1
	})
	return resp.Integer(n), nil
}

// DBSIZE
func (e *Engine) dbsize(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) != 0 {
		return nil, wrongArity("DBSIZE")
	}
	var n int
	e.store.Exec(func(tx *memory.Tx) {
		n = tx.Len()
	})
	return resp.Integer(n), nil
}

// KEYS <pattern>
//
// Only the '*' wildcard is supported. Keys are returned sorted.
func (e *Engine) keys(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) != 1 {
		return nil, wrongArity("KEYS")
	}
	pattern, ok := bulkArg(args[0])
	if !ok {
		return nil, invalidArg("KEYS")
	}

	var matched []string
	e.store.Exec(func(tx *memory.Tx) {
		tx.Range(func(k string, _ memory.StoredValue) bool {
			if matchGlob(pattern, k) {
				matched = append(matched, k)
			}
			return true
		})
	})
	sort.Strings(matched)

	out := make(resp.Array, 0, len(matched))
	for _, k := range matched {
		out = append(out, resp.Bulk(k))
	}
	return out, nil
}

func matchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == "" {
		return s == ""
	}

	if !strings.Contains(pattern, "*") {
		return pattern == s
	}

	parts := strings.Split(pattern, "*")

	// First part must be a prefix (if not empty)
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	last := parts[len(parts)-1]

	// Middle parts must appear in order
	for _, p := range parts[1 : len(parts)-1] {
		if p == "" {
			continue
		}
		idx := strings.Index(s, p)
		if idx < 0 {
			return false
		}
		s = s[idx+len(p):]
	}

	return len(s) >= len(last) && strings.HasSuffix(s, last)
}
