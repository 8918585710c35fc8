package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage/memory"
)

// listSep joins list items inside a payload. Items containing the
// separator cannot be told apart from two items.
const listSep = ","

func decodeList(payload string) []string {
	if payload == "" {
		return nil
	}
	return strings.Split(payload, listSep)
}

func encodeList(items []string) string {
	return strings.Join(items, listSep)
}

// LPUSH <key> <item> [item ...]
//
// Items are prepended one at a time, so "LPUSH k a b c" yields [c b a].
func (e *Engine) lpush(_ context.Context, args []resp.Message) (resp.Message, error) {
	return e.push(args, "LPUSH", func(list, items []string) []string {
		out := make([]string, 0, len(list)+len(items))
		for i := len(items) - 1; i >= 0; i-- {
			out = append(out, items[i])
		}
		return append(out, list...)
	})
}

// RPUSH <key> <item> [item ...]
func (e *Engine) rpush(_ context.Context, args []resp.Message) (resp.Message, error) {
	return e.push(args, "RPUSH", func(list, items []string) []string {
		return append(list, items...)
	})
}

func (e *Engine) push(args []resp.Message, command string, merge func(list, items []string) []string) (resp.Message, error) {
	if len(args) == 0 {
		return nil, domain.ErrUnknownCommand
	}
	if len(args) < 2 {
		return nil, invalidArg(command)
	}
	all, err := keyArgs(args, command)
	if err != nil {
		return nil, err
	}
	key, items := all[0], all[1:]

	var n int
	e.store.Exec(func(tx *memory.Tx) {
		v, st := tx.Lookup(key)
		switch st {
		case memory.Expired:
			err = domain.ErrKeyExpired
			return
		case memory.Missing:
			v = memory.StoredValue{ExpiresAt: memory.NoExpiry}
		}

		list := merge(decodeList(v.Payload), items)
		v.Payload = encodeList(list)
		tx.Set(key, v)
		n = len(list)
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(n), nil
}

// LRANGE <key> <start> <stop>
//
// Indices are inclusive and count from the head. An index that is not an
// unsigned integer (an optional leading + is allowed) is read as 0,
// so negative indices select the head.
func (e *Engine) lrange(_ context.Context, args []resp.Message) (resp.Message, error) {
	if len(args) != 3 {
		return nil, domain.ErrUnknownCommand
	}
	all, err := keyArgs(args, "LRANGE")
	if err != nil {
		return nil, err
	}
	key := all[0]
	start := parseIndex(all[1])
	stop := parseIndex(all[2])

	var list []string
	e.store.Exec(func(tx *memory.Tx) {
		v, st := tx.Lookup(key)
		switch st {
		case memory.Missing:
			err = domain.ErrKeyNotFound
		case memory.Expired:
			err = domain.ErrKeyExpired
		default:
			list = decodeList(v.Payload)
		}
	})
	if err != nil {
		return nil, err
	}

	out := resp.Array{}
	for _, item := range sliceRange(list, start, stop) {
		out = append(out, resp.Bulk(item))
	}
	return out, nil
}

func parseIndex(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// sliceRange returns list[start:stop+1] clamped to the list bounds.
func sliceRange(list []string, start, stop uint64) []string {
	n := uint64(len(list))
	if n == 0 || start > stop || start >= n {
		return nil
	}
	if stop >= n {
		stop = n - 1
	}
	return list[start : stop+1]
}
