package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/minikv/internal/storage"
	"github.com/yndnr/minikv/internal/storage/snapshot"
	"github.com/yndnr/minikv/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySecurity(cfg); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.Redis.Addr); err != nil {
		return fmt.Errorf("server.redis.addr: %w", err)
	}
	if (cfg.Redis.TLSCertFile == "") != (cfg.Redis.TLSKeyFile == "") {
		return errors.New("server.redis.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.Redis.TLSCertFile, cfg.Redis.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.redis tls file: %w", err)
		}
	}
	if cfg.Redis.ReadBufferSize < 16 {
		return errors.New("server.redis.read_buffer_size must be at least 16")
	}
	if cfg.Redis.IdleTimeout < 0 || cfg.Redis.WriteTimeout < 0 {
		return errors.New("server.redis timeouts must not be negative")
	}
	if cfg.Redis.RateLimit < 0 || cfg.Redis.RateBurst < 0 {
		return errors.New("server.redis.rate_limit and rate_burst must not be negative")
	}

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			return fmt.Errorf("server.http.addr: %w", err)
		}
		if cfg.HTTP.Addr == cfg.Redis.Addr {
			return errors.New("server.http.addr conflicts with server.redis.addr")
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case storage.BackendFile, storage.BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			storage.BackendFile, storage.BackendBadger, cfg.Backend)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	if cfg.SnapshotInterval < 0 {
		return errors.New("storage.snapshot_interval must not be negative")
	}
	if cfg.Backend == storage.BackendBadger {
		if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
			return errors.New("storage.badger.gc_threshold must be between 0 and 1")
		}
	}
	return nil
}

func verifySecurity(cfg *ServerConfig) error {
	enc, err := cfg.Security.Encryption()
	if err != nil {
		return err
	}
	if err := snapshot.ValidateConfig(enc); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	if cfg.Storage.Backend == storage.BackendBadger && len(enc.Passphrase) > 0 {
		return errors.New("security.passphrase is not supported by the badger backend")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}
