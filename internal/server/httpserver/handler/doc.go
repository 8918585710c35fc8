// Package handler provides the admin HTTP handlers.
//
// Every JSON body uses the Response envelope; /metrics is passed through
// to the Prometheus handler untouched.
package handler
