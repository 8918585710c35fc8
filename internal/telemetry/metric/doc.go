// Package metric provides Prometheus metrics for minikv.
//
//   - prometheus.go: Registry with command, connection and snapshot metrics;
//     implements the engine observer
//   - collector.go: keyspace collector reading the store on scrape
//
// Metrics are exposed at /metrics by the admin HTTP server.
package metric
