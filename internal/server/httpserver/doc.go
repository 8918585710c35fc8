// Package httpserver provides the admin HTTP server for minikv.
//
// It serves liveness and readiness probes, a JSON stats document and the
// Prometheus scrape endpoint. Key-value traffic never goes through HTTP.
package httpserver
