// Package config holds the minikv-cli settings file.
//
// The file lives at ~/.minikv/cli.yaml. Command-line flags and MINIKV_*
// environment variables override it.
package config
