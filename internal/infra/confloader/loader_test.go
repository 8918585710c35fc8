package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Redis struct {
			Addr           string `koanf:"addr"`
			ReadBufferSize int    `koanf:"read_buffer_size"`
		} `koanf:"redis"`
		HTTP struct {
			Enabled bool `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Storage struct {
		SnapshotInterval time.Duration `koanf:"snapshot_interval"`
	} `koanf:"storage"`
	Ignored string
}

func defaults() *testConfig {
	cfg := &testConfig{}
	cfg.Server.Redis.Addr = "127.0.0.1:6379"
	cfg.Server.Redis.ReadBufferSize = 65536
	cfg.Storage.SnapshotInterval = time.Minute
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
	if DefaultEnvPrefix != "MINIKV_" {
		t.Errorf("DefaultEnvPrefix = %q", DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q, want %q", l.FilePath(), "/path/to/config.yaml")
	}
}

// ====================
// Layering
// ====================

func TestLoader_Load_DefaultsOnly(t *testing.T) {
	cfg := defaults()
	l := NewLoader()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("Addr = %q, want default", cfg.Server.Redis.Addr)
	}
	if got := l.Origin("server.redis.addr"); got != SourceDefault {
		t.Errorf("Origin(server.redis.addr) = %q, want %q", got, SourceDefault)
	}
	if got := l.Origin("ignored"); got != "" {
		t.Errorf("untagged field loaded with origin %q", got)
	}
	if len(l.Overrides()) != 0 {
		t.Errorf("Overrides() = %v, want none", l.Overrides())
	}
}

func TestLoader_Load_File(t *testing.T) {
	path := writeConfig(t, `
server:
  redis:
    addr: "0.0.0.0:6379"
  http:
    enabled: true
`)

	cfg := defaults()
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "0.0.0.0:6379" {
		t.Errorf("Addr = %q, want %q", cfg.Server.Redis.Addr, "0.0.0.0:6379")
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("HTTP.Enabled should be true")
	}
	if got := l.Origin("server.http.enabled"); got != SourceFile {
		t.Errorf("Origin(server.http.enabled) = %q, want %q", got, SourceFile)
	}
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	l := NewLoader(WithConfigFile("/nonexistent/config.yaml"))
	if err := l.Load(defaults()); err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoader_Load_NotStruct(t *testing.T) {
	l := NewLoader()
	n := 42
	if err := l.Load(&n); err == nil {
		t.Error("Load(*int) should fail")
	}
	var nilCfg *testConfig
	if err := l.Load(nilCfg); err == nil {
		t.Error("Load(nil) should fail")
	}
}

func TestLoader_Load_EnvUnderscoreKeys(t *testing.T) {
	t.Setenv("MINIKV_SERVER_REDIS_READ_BUFFER_SIZE", "1024")
	t.Setenv("MINIKV_STORAGE_SNAPSHOT_INTERVAL", "30s")

	cfg := defaults()
	l := NewLoader()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want 1024", cfg.Server.Redis.ReadBufferSize)
	}
	if cfg.Storage.SnapshotInterval != 30*time.Second {
		t.Errorf("SnapshotInterval = %v, want 30s", cfg.Storage.SnapshotInterval)
	}
	if got := l.Origin("server.redis.read_buffer_size"); got != SourceEnv {
		t.Errorf("Origin(server.redis.read_buffer_size) = %q, want %q", got, SourceEnv)
	}
}

func TestLoader_Load_EnvCustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_REDIS_ADDR", "10.0.0.1:6379")
	t.Setenv("MINIKV_SERVER_REDIS_ADDR", "ignored:1")

	cfg := defaults()
	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "10.0.0.1:6379" {
		t.Errorf("Addr = %q, want %q", cfg.Server.Redis.Addr, "10.0.0.1:6379")
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  redis:
    addr: "from-file:6379"
    read_buffer_size: 2048
`)
	t.Setenv("MINIKV_SERVER_REDIS_ADDR", "from-env:6379")

	cfg := defaults()
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "from-env:6379" {
		t.Errorf("Addr = %q, want %q (env should override file)", cfg.Server.Redis.Addr, "from-env:6379")
	}
	if cfg.Server.Redis.ReadBufferSize != 2048 {
		t.Errorf("ReadBufferSize = %d, want 2048", cfg.Server.Redis.ReadBufferSize)
	}
	if cfg.Storage.SnapshotInterval != time.Minute {
		t.Errorf("SnapshotInterval = %v, want 1m", cfg.Storage.SnapshotInterval)
	}

	want := []string{"server.redis.addr", "server.redis.read_buffer_size"}
	got := l.Overrides()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Overrides() = %v, want %v", got, want)
	}
}

func TestLoader_Load_Again(t *testing.T) {
	path := writeConfig(t, "server:\n  redis:\n    addr: \"first:1\"\n")

	l := NewLoader(WithConfigFile(path))
	cfg := defaults()
	if err := l.Load(cfg); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("server:\n  http:\n    enabled: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg = defaults()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if cfg.Server.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("Addr = %q, want default after the key was removed from the file", cfg.Server.Redis.Addr)
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("Enabled should be true after the second load")
	}
	if got := l.Origin("server.redis.addr"); got != SourceDefault {
		t.Errorf("Origin(server.redis.addr) = %q, want %q", got, SourceDefault)
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v, want ErrReadBytesNotSupported", err)
	}
}
