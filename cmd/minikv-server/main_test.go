package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/minikv/internal/core/engine"
	"github.com/yndnr/minikv/internal/storage/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
server:
  redis:
    addr: 127.0.0.1:7000
    idle_timeout: 30s
storage:
  data_dir: `+dataDir+`
  snapshot_interval: 1m
log:
  level: warn
`)

	loader, cfg, err := loadConfig(path, "")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if loader.FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", loader.FilePath(), path)
	}
	if cfg.Server.Redis.Addr != "127.0.0.1:7000" {
		t.Errorf("Redis.Addr = %q, want 127.0.0.1:7000", cfg.Server.Redis.Addr)
	}
	if cfg.Server.Redis.IdleTimeout != 30*time.Second {
		t.Errorf("Redis.IdleTimeout = %v, want 30s", cfg.Server.Redis.IdleTimeout)
	}
	if cfg.Storage.SnapshotInterval != time.Minute {
		t.Errorf("Storage.SnapshotInterval = %v, want 1m", cfg.Storage.SnapshotInterval)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	path := writeConfig(t, "storage:\n  data_dir: "+t.TempDir()+"\nlog:\n  level: warn\n")

	_, cfg, err := loadConfig(path, "debug")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}

	if _, _, err := loadConfig(path, "loud"); err == nil {
		t.Error("loadConfig() with unknown log level should fail")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "server:\n  redis:\n    addr: no-port\nstorage:\n  data_dir: "+t.TempDir()+"\n")

	if _, _, err := loadConfig(path, ""); err == nil {
		t.Error("loadConfig() with bad redis addr should fail")
	}
}

func TestRedisConfig(t *testing.T) {
	_, cfg, err := loadConfig(writeConfig(t, "storage:\n  data_dir: "+t.TempDir()+"\n"), "")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	rc, err := redisConfig(&cfg.Server.Redis)
	if err != nil {
		t.Fatalf("redisConfig() error = %v", err)
	}
	if rc.Addr != cfg.Server.Redis.Addr {
		t.Errorf("Addr = %q, want %q", rc.Addr, cfg.Server.Redis.Addr)
	}
	if rc.TLSConfig != nil {
		t.Error("TLSConfig should be nil without certificate files")
	}

	cfg.Server.Redis.TLSCertFile = filepath.Join(t.TempDir(), "missing.crt")
	cfg.Server.Redis.TLSKeyFile = filepath.Join(t.TempDir(), "missing.key")
	if _, err := redisConfig(&cfg.Server.Redis); err == nil {
		t.Error("redisConfig() with missing key pair should fail")
	}
}

// closingSink records saves that arrive after Close.
type closingSink struct {
	mu         sync.Mutex
	saves      int
	closed     bool
	afterClose int
}

func (s *closingSink) Save(context.Context, map[string]memory.StoredValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.afterClose++
		return errors.New("sink closed")
	}
	s.saves++
	return nil
}

func (s *closingSink) Load(context.Context) (map[string]memory.StoredValue, error) {
	return nil, nil
}

func (s *closingSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *closingSink) counts() (saves, afterClose int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.afterClose
}

func TestStartSnapshots_StopBeforeClose(t *testing.T) {
	sink := &closingSink{}
	eng := engine.New(memory.New(),
		engine.WithSnapshotSink(sink),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	stop := startSnapshots(eng, 2*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if saves, _ := sink.counts(); saves > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no periodic snapshot before deadline")
		}
		time.Sleep(time.Millisecond)
	}

	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop() error = %v", err)
	}
	sink.Close()

	time.Sleep(20 * time.Millisecond)
	if _, after := sink.counts(); after != 0 {
		t.Errorf("saves after close = %d, want 0", after)
	}
}
