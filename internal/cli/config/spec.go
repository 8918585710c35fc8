package config

import "time"

// CLIConfig is the configuration for minikv-cli.
type CLIConfig struct {
	// Server is the RESP address.
	Server string `yaml:"server"`

	// Admin is the admin HTTP address used by stats.
	Admin string `yaml:"admin"`

	// Output is text, json or yaml.
	Output string `yaml:"output"`

	// Timeout bounds one request.
	Timeout time.Duration `yaml:"timeout"`

	// TLS dials the server with TLS.
	TLS bool `yaml:"tls"`

	// TLSSkipVerify disables server certificate verification.
	TLSSkipVerify bool `yaml:"tls_skip_verify"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "127.0.0.1:6379",
		Admin:   "127.0.0.1:6380",
		Output:  "text",
		Timeout: 10 * time.Second,
	}
}
