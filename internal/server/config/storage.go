package config

import (
	"encoding/hex"
	"fmt"

	"github.com/yndnr/minikv/internal/storage"
	"github.com/yndnr/minikv/internal/storage/snapshot"
)

// Encryption decodes the key material into a snapshot encryption config.
func (s SecuritySection) Encryption() (snapshot.EncryptionConfig, error) {
	enc := snapshot.EncryptionConfig{Algorithm: s.Algorithm}
	if s.Passphrase != "" {
		enc.Passphrase = []byte(s.Passphrase)
		return enc, nil
	}
	if s.EncryptionKey != "" {
		key, err := hex.DecodeString(s.EncryptionKey)
		if err != nil {
			return enc, fmt.Errorf("security.encryption_key: not valid hex: %w", err)
		}
		enc.Key = key
	}
	return enc, nil
}

// SinkConfig builds the snapshot sink configuration.
func (c *ServerConfig) SinkConfig() (storage.Config, error) {
	enc, err := c.Security.Encryption()
	if err != nil {
		return storage.Config{}, err
	}

	sc := storage.DefaultConfig(c.Storage.DataDir)
	sc.Backend = c.Storage.Backend
	sc.RetentionCount = c.Storage.SnapshotKeep
	sc.RetentionDays = c.Storage.SnapshotRetentionDays
	sc.Encryption = enc

	b := c.Storage.Badger
	sc.Badger.GCInterval = b.GCInterval
	if b.GCThreshold > 0 {
		sc.Badger.GCThreshold = b.GCThreshold
	}
	if b.CacheSize > 0 {
		sc.Badger.CacheSize = b.CacheSize
	}
	sc.Badger.SyncWrites = b.SyncWrites

	return sc, nil
}
