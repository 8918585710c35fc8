package config

import "time"

// ServerConfig is the root configuration for minikv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// IdleTimeout closes a connection with no request for this long. Zero disables it.
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ReadBufferSize bounds a single request; larger requests are split and fail to decode.
	ReadBufferSize int `koanf:"read_buffer_size"`

	// RateLimit is the per-connection command rate (commands/second). Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// StorageSection configures snapshot persistence.
type StorageSection struct {
	// Backend is "file" or "badger".
	Backend string `koanf:"backend"`
	DataDir string `koanf:"data_dir"`

	LoadOnStart      bool          `koanf:"load_on_start"`
	SaveOnShutdown   bool          `koanf:"save_on_shutdown"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	SnapshotKeep          int `koanf:"snapshot_keep"`
	SnapshotRetentionDays int `koanf:"snapshot_retention_days"`

	Badger BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the badger backend.
type BadgerSection struct {
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	CacheSize   int64         `koanf:"cache_size"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// SecuritySection configures snapshot encryption.
type SecuritySection struct {
	// EncryptionKey is a hex-encoded raw key (at least 16 bytes decoded).
	EncryptionKey string `koanf:"encryption_key"`

	// Passphrase takes precedence over EncryptionKey. File backend only.
	Passphrase string `koanf:"passphrase"`

	// Algorithm is "aes-gcm", "chacha20-poly1305" or empty for auto.
	Algorithm string `koanf:"algorithm"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
