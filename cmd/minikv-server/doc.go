// minikv-server serves a Redis-compatible key-value store over RESP.
//
// The server provides:
//
//   - RESP listener for GET, SET, INCR, LPUSH, LRANGE and friends
//   - Periodic and on-demand snapshots to a file or badger sink
//   - Optional admin HTTP listener with /health, /ready, /stats and /metrics
//
// Usage:
//
//	minikv-server [flags]
//	minikv-server --config /etc/minikv/server.yaml
//	minikv-server --log-level debug
//
// Every config key can also be set through MINIKV_ environment variables,
// e.g. MINIKV_SERVER_REDIS_ADDR=0.0.0.0:6379.
package main
