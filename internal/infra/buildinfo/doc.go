// Package buildinfo exposes version information for minikv binaries.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/minikv/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit or GoVersion are not injected they are read from the module
// build information embedded by the Go toolchain.
package buildinfo
