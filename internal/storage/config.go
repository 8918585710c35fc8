package storage

import (
	"time"

	"github.com/yndnr/minikv/internal/storage/snapshot"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config configures a snapshot sink.
type Config struct {
	// Backend selects the sink implementation ("file" or "badger").
	// Default: "file"
	Backend string

	// Dir is the data directory. Each backend uses its own subdirectory.
	Dir string

	// RetentionCount is the number of snapshot files kept by the file backend.
	RetentionCount int

	// RetentionDays removes older snapshot files. Negative disables the age check.
	RetentionDays int

	// Encryption applies to the file backend. The badger backend only
	// supports a raw key.
	Encryption snapshot.EncryptionConfig

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Zero disables the background loop.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites enables fsync after each write.
	// Default: true
	SyncWrites bool
}

// DefaultConfig returns the default sink configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Backend:        BackendFile,
		Dir:            dir,
		RetentionCount: snapshot.DefaultRetentionCount,
		RetentionDays:  snapshot.DefaultRetentionDays,
		Badger:         DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
		SyncWrites:       true,
	}
}
