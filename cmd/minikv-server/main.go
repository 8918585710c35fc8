// Package main provides the entry point for minikv-server.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/core/engine"
	"github.com/yndnr/minikv/internal/infra/buildinfo"
	"github.com/yndnr/minikv/internal/infra/confloader"
	"github.com/yndnr/minikv/internal/infra/shutdown"
	"github.com/yndnr/minikv/internal/server/config"
	"github.com/yndnr/minikv/internal/server/httpserver"
	"github.com/yndnr/minikv/internal/server/redisserver"
	"github.com/yndnr/minikv/internal/storage"
	"github.com/yndnr/minikv/internal/storage/memory"
	"github.com/yndnr/minikv/internal/telemetry/logger"
	"github.com/yndnr/minikv/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "minikv-server",
		Usage:   "Redis-compatible key-value server",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"MINIKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		HideHelpCommand: true,
		Action: func(c *cli.Context) error {
			return run(c.String("config"), c.String("log-level"))
		},
	}
}

func run(configFile, logLevel string) error {
	loader, cfg, err := loadConfig(configFile, logLevel)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting minikv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)
	log.Info("configuration loaded",
		"config", config.Sanitize(cfg),
		"overrides", loader.Overrides())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := initStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	reg := metric.NewRegistry()
	store := memory.New()
	eng := engine.New(store,
		engine.WithSnapshotSink(sink),
		engine.WithLogger(log.With("component", "engine")),
		engine.WithObserver(reg),
	)

	reg.MustRegister(metric.NewCollector(store))
	if bs, ok := sink.(*storage.BadgerSink); ok {
		bs.RegisterMetrics(reg.Prometheus())
	}

	if cfg.Storage.LoadOnStart {
		if _, err := eng.Restore(ctx); err != nil {
			_ = sink.Close()
			return fmt.Errorf("restore snapshot: %w", err)
		}
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)

	// Hooks run in reverse order: the sink closes last.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return sink.Close()
	})
	if cfg.Storage.SaveOnShutdown {
		shutdownHandler.OnShutdown("final snapshot", func(ctx context.Context) error {
			return eng.Snapshot(ctx)
		})
	}

	shutdownHandler.OnShutdown("snapshot loop", startSnapshots(eng, cfg.Storage.SnapshotInterval))

	errCh := make(chan error, 2)

	// abort unwinds whatever already started when a listener cannot bind.
	abort := func(err error) error {
		shutdownHandler.Trigger()
		_ = shutdownHandler.Wait(context.Background())
		return err
	}

	redisCfg, err := redisConfig(&cfg.Server.Redis)
	if err != nil {
		return abort(err)
	}
	redisSrv := redisserver.New(redisCfg, eng,
		redisserver.WithLogger(log.With("component", "redis")),
		redisserver.WithMetrics(reg),
	)
	if err := redisSrv.Start(ctx, errCh); err != nil {
		return abort(fmt.Errorf("start redis listener: %w", err))
	}
	shutdownHandler.OnShutdown("redis server", redisSrv.Shutdown)

	var ready atomic.Bool
	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Keyspace: store,
			Conns:    redisSrv,
			Ready: func() error {
				if !ready.Load() {
					return errors.New("server is starting")
				}
				return nil
			},
			Metrics: reg.Handler(),
			Logger:  log.With("component", "http"),
		})
		httpSrv := httpserver.New(cfg.Server.HTTP.Addr, router, log)
		if err := httpSrv.Start(errCh); err != nil {
			return abort(fmt.Errorf("start http listener: %w", err))
		}
		shutdownHandler.OnShutdown("http server", func(ctx context.Context) error {
			ready.Store(false)
			return httpSrv.Shutdown(ctx)
		})
	}

	if loader.FilePath() != "" {
		watcher, err := watchConfig(loader, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	go func() {
		select {
		case err := <-errCh:
			log.Error("listener failed, shutting down", "error", err)
			shutdownHandler.Trigger()
		case <-ctx.Done():
		}
	}()

	ready.Store(true)
	log.Info("server started", "redis_addr", redisSrv.Addr().String())

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file and environment.
// A non-empty logLevel overrides log.level.
func loadConfig(configFile, logLevel string) (*confloader.Loader, *config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loader, cfg, nil
}

// initLogger installs the process logger and returns its slog form.
func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log.Slog(), nil
}

func initStorage(cfg *config.ServerConfig, log *slog.Logger) (storage.Sink, error) {
	sc, err := cfg.SinkConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(sc, log.With("component", "storage"))
}

func redisConfig(rc *config.RedisConfig) (*redisserver.Config, error) {
	out := &redisserver.Config{
		Addr:           rc.Addr,
		IdleTimeout:    rc.IdleTimeout,
		WriteTimeout:   rc.WriteTimeout,
		ReadBufferSize: rc.ReadBufferSize,
		RateLimit:      rc.RateLimit,
		RateBurst:      rc.RateBurst,
	}
	if rc.TLSCertFile != "" && rc.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(rc.TLSCertFile, rc.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load redis tls key pair: %w", err)
		}
		out.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
	return out, nil
}

// watchConfig reapplies log.level when the config file changes.
// Other settings need a restart.
func watchConfig(loader *confloader.Loader, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(loader.FilePath()); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(path string) {
		next := config.Default()
		if err := loader.Load(next); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config rejected", "path", path, "error", err)
			return
		}
		if next.Log.Level != logger.GetLevel() {
			logger.SetLevel(next.Log.Level)
			log.Info("log level changed", "level", next.Log.Level)
		}
	})

	w.StartAsync()
	return w, nil
}

// startSnapshots runs the periodic snapshot loop in the background. The
// returned stop function cancels it and waits until no tick is in flight,
// so it must run before the sink is closed.
func startSnapshots(eng *engine.Engine, interval time.Duration) func(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.RunSnapshots(ctx, interval)
	}()

	return func(wait context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-wait.Done():
			return wait.Err()
		}
	}
}
