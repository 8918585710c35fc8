package config

import (
	"fmt"
	"log/slog"
)

const redacted = "[REDACTED]"

// Sanitize returns a copy of cfg with the snapshot secrets replaced.
// A hex key keeps only its decoded size so operators can still tell keys apart by length.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.Security.EncryptionKey = maskKey(cfg.Security.EncryptionKey)
	if cfg.Security.Passphrase != "" {
		out.Security.Passphrase = redacted
	}
	return &out
}

func maskKey(hexKey string) string {
	switch {
	case hexKey == "":
		return ""
	case len(hexKey)%2 != 0:
		return redacted
	default:
		return fmt.Sprintf("%s (%d bytes)", redacted, len(hexKey)/2)
	}
}

// LogValue renders the settings an operator checks at startup. Secrets are
// reported only as the encryption mode.
func (c *ServerConfig) LogValue() slog.Value {
	mode := "none"
	switch {
	case c.Security.Passphrase != "":
		mode = "passphrase"
	case c.Security.EncryptionKey != "":
		mode = "key"
	}

	attrs := []slog.Attr{
		slog.String("redis_addr", c.Server.Redis.Addr),
		slog.Bool("redis_tls", c.Server.Redis.TLSCertFile != ""),
		slog.String("storage_backend", c.Storage.Backend),
		slog.String("data_dir", c.Storage.DataDir),
		slog.Duration("snapshot_interval", c.Storage.SnapshotInterval),
		slog.String("encryption", mode),
		slog.String("log_level", c.Log.Level),
	}
	if c.Server.HTTP.Enabled {
		attrs = append(attrs, slog.String("http_addr", c.Server.HTTP.Addr))
	}
	return slog.GroupValue(attrs...)
}
