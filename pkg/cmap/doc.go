// Package cmap provides a string-keyed map sharded over independently
// locked buckets.
//
// Keys pick a shard by a seeded murmur3 hash. The connection driver keeps its
// live connections here, keyed by connection ID:
//
//	conns := cmap.New[*Conn]()
//	conns.Set(id, c)
//	c, ok := conns.Pop(id)
package cmap
