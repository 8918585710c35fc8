// Package config holds the minikv server configuration: the ServerConfig
// tree with its defaults, validation and log-safe rendering, and the mapping
// of its storage section onto the snapshot sink.
//
// Values are loaded by internal/infra/confloader from a YAML file and
// MINIKV_ environment variables.
package config
