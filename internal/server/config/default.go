package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultWriteTimeout   = 10 * time.Second
	DefaultReadBufferSize = 64 << 10
	DefaultHTTPAddr       = "127.0.0.1:6380"

	DefaultStorageBackend        = "file"
	DefaultDataDir               = "/var/lib/minikv-server/data"
	DefaultSnapshotKeep          = 5
	DefaultSnapshotRetentionDays = 7

	DefaultBadgerGCInterval  = 10 * time.Minute
	DefaultBadgerGCThreshold = 0.5
	DefaultBadgerCacheSize   = 64 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:           DefaultRedisAddr,
				WriteTimeout:   DefaultWriteTimeout,
				ReadBufferSize: DefaultReadBufferSize,
			},
			HTTP: HTTPConfig{
				Enabled: false,
				Addr:    DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			Backend:               DefaultStorageBackend,
			DataDir:               DefaultDataDir,
			LoadOnStart:           true,
			SnapshotKeep:          DefaultSnapshotKeep,
			SnapshotRetentionDays: DefaultSnapshotRetentionDays,
			Badger: BadgerSection{
				GCInterval:  DefaultBadgerGCInterval,
				GCThreshold: DefaultBadgerGCThreshold,
				CacheSize:   DefaultBadgerCacheSize,
				SyncWrites:  true,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
