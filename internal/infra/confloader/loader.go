package confloader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "MINIKV_"

// Source names the layer a configuration key was last set by.
type Source string

// Configuration layers, lowest priority first.
const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Loader layers struct defaults, a YAML file and environment variables.
type Loader struct {
	envPrefix string
	filePath  string

	mu     sync.RWMutex
	origin map[string]Source
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file. An empty path skips the file layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load fills target, a pointer to a koanf-tagged struct. The values already
// in target are the defaults; the file overrides them and the environment
// overrides both. Every call starts from scratch, so calling Load again
// after the file changed drops keys removed from it.
func (l *Loader) Load(target any) error {
	defaults, err := structToMap(target)
	if err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	merged := koanf.New(".")
	origin := make(map[string]Source)
	apply := func(src Source, layer *koanf.Koanf) error {
		for _, key := range layer.Keys() {
			origin[key] = src
		}
		return merged.Merge(layer)
	}

	dk := koanf.New(".")
	if err := dk.Load(mapProvider(defaults), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	if err := apply(SourceDefault, dk); err != nil {
		return err
	}

	if l.filePath != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
		if err := apply(SourceFile, fk); err != nil {
			return err
		}
	}

	ek, err := l.envLayer(merged.Keys())
	if err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if err := apply(SourceEnv, ek); err != nil {
		return err
	}

	if err := merged.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.mu.Lock()
	l.origin = origin
	l.mu.Unlock()
	return nil
}

// envLayer reads prefixed variables. MINIKV_SERVER_REDIS_ADDR maps to
// server.redis.addr; a name matching a known key keeps that key's
// underscores (MINIKV_STORAGE_DATA_DIR -> storage.data_dir), others split
// on every underscore.
func (l *Loader) envLayer(knownKeys []string) (*koanf.Koanf, error) {
	known := make(map[string]string, len(knownKeys))
	for _, k := range knownKeys {
		known[strings.ReplaceAll(k, ".", "_")] = k
	}

	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if k, ok := known[s]; ok {
			return k
		}
		return strings.ReplaceAll(s, "_", ".")
	}

	ek := koanf.New(".")
	if err := ek.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return nil, err
	}
	return ek, nil
}

// Origin reports which layer set key in the last Load, or "" if the key
// was not loaded.
func (l *Loader) Origin(key string) Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.origin[key]
}

// Overrides lists, sorted, the keys the last Load took from the file or the
// environment.
func (l *Loader) Overrides() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var keys []string
	for k, src := range l.origin {
		if src != SourceDefault {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
