package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/minikv/internal/storage/memory"
	"github.com/yndnr/minikv/internal/storage/snapshot"
)

// Key layout:
//
//	meta/generation          -> uint64 big endian
//	meta/saved_at            -> int64 big endian, unix milliseconds
//	gen/<uint64 BE>/<key>    -> JSON memory.StoredValue
var (
	metaGenerationKey = []byte("meta/generation")
	metaSavedAtKey    = []byte("meta/saved_at")
	genPrefixBase     = []byte("gen/")
)

// badgerSubkeyInfo binds the HKDF output to the Badger data directory.
const badgerSubkeyInfo = "minikv badger v1"

// BadgerSink stores the last saved keyspace in an embedded Badger database.
//
// Each save writes a new generation, switches the generation pointer in one
// transaction and drops the previous generation, so a crash mid-save leaves
// the previous snapshot readable.
type BadgerSink struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	saveMu sync.Mutex
	closed atomic.Bool

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// BadgerStats contains sink statistics.
type BadgerStats struct {
	Generation   uint64 `json:"generation"`
	SavedAt      int64  `json:"saved_at"`
	LSMSize      int64  `json:"lsm_size"`
	ValueLogSize int64  `json:"value_log_size"`
	LastGCTime   int64  `json:"last_gc_time"`
	GCRuns       uint64 `json:"gc_runs"`
}

// NewBadgerSink opens the Badger database under cfg.Dir/badger.
func NewBadgerSink(cfg Config, logger *slog.Logger) (*BadgerSink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Encryption.Passphrase) > 0 {
		return nil, fmt.Errorf("badger: passphrase encryption is not supported, use a raw key")
	}

	dir := filepath.Join(cfg.Dir, "badger")
	bc := cfg.Badger

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	if bc.CacheSize > 0 {
		opts.BlockCacheSize = bc.CacheSize
	}
	if bc.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = bc.ValueLogFileSize
	}
	if bc.NumMemtables > 0 {
		opts.NumMemtables = bc.NumMemtables
	}
	opts.SyncWrites = bc.SyncWrites
	opts.DetectConflicts = false

	if len(cfg.Encryption.Key) > 0 {
		if len(cfg.Encryption.Key) < snapshot.MinKeyLength {
			return nil, snapshot.ErrKeyTooShort
		}
		key, err := snapshot.DeriveSubkey(cfg.Encryption.Key, badgerSubkeyInfo, 32)
		if err != nil {
			return nil, fmt.Errorf("badger: derive key: %w", err)
		}
		// Badger requires an index cache when encryption is on.
		opts = opts.WithEncryptionKey(key).WithIndexCacheSize(16 << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerSink{
		db:     db,
		cfg:    bc,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger sink opened",
		"dir", dir,
		"cache_size", opts.BlockCacheSize,
		"gc_interval", bc.GCInterval,
		"encrypted", len(cfg.Encryption.Key) > 0)

	return s, nil
}

func genPrefix(gen uint64) []byte {
	p := make([]byte, 0, len(genPrefixBase)+9)
	p = append(p, genPrefixBase...)
	p = binary.BigEndian.AppendUint64(p, gen)
	return append(p, '/')
}

func readUint64(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("badger: corrupt %s", key)
	}
	return binary.BigEndian.Uint64(v), nil
}

func (s *BadgerSink) generation() (uint64, error) {
	var gen uint64
	err := s.db.View(func(txn *badger.Txn) error {
		g, err := readUint64(txn, metaGenerationKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		gen = g
		return nil
	})
	return gen, err
}

// Save writes entries as a new generation and drops the previous one.
func (s *BadgerSink) Save(ctx context.Context, entries map[string]memory.StoredValue) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	startTime := time.Now()

	cur, err := s.generation()
	if err != nil {
		return fmt.Errorf("badger: read generation: %w", err)
	}
	next := cur + 1
	prefix := genPrefix(next)

	// Leftovers of an interrupted save.
	if err := s.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("badger: drop stale generation: %w", err)
	}

	wb := s.db.NewWriteBatch()
	for key, v := range entries {
		if err := ctx.Err(); err != nil {
			wb.Cancel()
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			wb.Cancel()
			return fmt.Errorf("badger: encode %q: %w", key, err)
		}
		k := make([]byte, 0, len(prefix)+len(key))
		k = append(append(k, prefix...), key...)
		if err := wb.Set(k, data); err != nil {
			wb.Cancel()
			return fmt.Errorf("badger: write batch: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger: flush batch: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaGenerationKey, binary.BigEndian.AppendUint64(nil, next)); err != nil {
			return err
		}
		return txn.Set(metaSavedAtKey, binary.BigEndian.AppendUint64(nil, uint64(time.Now().UnixMilli())))
	})
	if err != nil {
		return fmt.Errorf("badger: switch generation: %w", err)
	}

	if cur > 0 {
		if err := s.db.DropPrefix(genPrefix(cur)); err != nil {
			s.logger.Warn("drop previous generation failed", "generation", cur, "error", err)
		}
	}

	s.logger.Info("badger snapshot saved",
		"generation", next,
		"keys", len(entries),
		"elapsed", time.Since(startTime))

	return nil
}

// Load reads the current generation.
func (s *BadgerSink) Load(ctx context.Context) (map[string]memory.StoredValue, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	entries := make(map[string]memory.StoredValue)

	err := s.db.View(func(txn *badger.Txn) error {
		gen, err := readUint64(txn, metaGenerationKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("badger: %w", ErrNoSnapshot)
			}
			return err
		}

		prefix := genPrefix(gen)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key()[len(prefix):])

			var v memory.StoredValue
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			})
			if err != nil {
				return fmt.Errorf("badger: decode %q: %w", key, err)
			}
			entries[key] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// GC runs value log GC until Badger reports nothing left to rewrite.
// Returns the number of rewritten value log files.
func (s *BadgerSink) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	rewritten := 0
	for {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return rewritten, fmt.Errorf("gc: %w", err)
		}
		rewritten++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(1)

	s.logger.Debug("badger gc completed",
		"rewritten", rewritten,
		"elapsed", time.Since(startTime))

	return rewritten, nil
}

// Stats returns sink statistics.
func (s *BadgerSink) Stats() (*BadgerStats, error) {
	stats := &BadgerStats{
		LastGCTime: s.lastGCTime.Load(),
		GCRuns:     s.gcRuns.Load(),
	}
	stats.LSMSize, stats.ValueLogSize = s.db.Size()

	err := s.db.View(func(txn *badger.Txn) error {
		gen, err := readUint64(txn, metaGenerationKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.Generation = gen

		savedAt, err := readUint64(txn, metaSavedAtKey)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stats.SavedAt = int64(savedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh

		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		s.logger.Info("badger sink closed")
	})
	return err
}

// RegisterMetrics registers Badger metrics with Prometheus.
// Call once, before the sink is closed.
func (s *BadgerSink) RegisterMetrics(registry prometheus.Registerer) *BadgerSink {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "minikv",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "minikv",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "minikv",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	gcRuns := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "minikv",
		Subsystem: "badger",
		Name:      "gc_runs_total",
		Help:      "Total completed Badger value log GC runs",
	}, func() float64 { return float64(s.gcRuns.Load()) })

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		gcRuns,
	)

	s.updateMetrics()
	go s.metricsUpdateLoop()

	return s
}

func (s *BadgerSink) updateMetrics() {
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if t := s.lastGCTime.Load(); t > 0 {
		s.metricsLastGCTime.Set(float64(t) / 1000.0)
	}
}

func (s *BadgerSink) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerSink) gcLoop() {
	defer close(s.doneCh)

	if s.cfg.GCInterval <= 0 {
		<-s.stopCh
		return
	}

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
