package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/minikv/internal/core/domain"
	"github.com/yndnr/minikv/internal/resp"
	"github.com/yndnr/minikv/internal/storage"
	"github.com/yndnr/minikv/internal/storage/memory"
)

// SnapshotSink persists full dumps of the keyspace.
type SnapshotSink interface {
	// Save writes a complete dump, expiry metadata included.
	Save(ctx context.Context, entries map[string]memory.StoredValue) error

	// Load returns the most recent dump. It returns an error wrapping
	// storage.ErrNoSnapshot when nothing has been saved yet.
	Load(ctx context.Context) (map[string]memory.StoredValue, error)
}

// SAVE
func (e *Engine) save(ctx context.Context, _ []resp.Message) (resp.Message, error) {
	if err := e.Snapshot(ctx); err != nil {
		return nil, err
	}
	return resp.SimpleString("OK"), nil
}

// Snapshot dumps the store and hands the dump to the sink. The store lock
// is released before the sink is called.
func (e *Engine) Snapshot(ctx context.Context) error {
	if e.sink == nil {
		return domain.ErrSnapshotUnavailable
	}

	start := time.Now()
	entries := e.store.Dump()
	err := e.sink.Save(ctx, entries)
	e.observer.ObserveSnapshot("save", err, time.Since(start))
	if err != nil {
		e.logger.Error("snapshot save failed", "error", err)
		return domain.ErrSnapshotFailed.WithDetails(err.Error()).WithCause(err)
	}

	e.logger.Info("snapshot saved", "keys", len(entries), "duration", time.Since(start))
	return nil
}

// Restore loads the latest snapshot from the sink into the store.
// A missing snapshot is not an error; the store simply stays empty.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.sink == nil {
		return 0, nil
	}

	start := time.Now()
	entries, err := e.sink.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		e.logger.Info("no snapshot found, starting empty")
		return 0, nil
	}
	e.observer.ObserveSnapshot("load", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	n := e.store.Restore(entries)
	e.logger.Info("snapshot restored", "keys", n, "skipped_expired", len(entries)-n, "duration", time.Since(start))
	return n, nil
}

// RunSnapshots saves a snapshot every interval until ctx is cancelled.
func (e *Engine) RunSnapshots(ctx context.Context, interval time.Duration) {
	if interval <= 0 || e.sink == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Snapshot(ctx); err != nil {
				e.logger.Warn("periodic snapshot failed", "error", err)
			}
		}
	}
}
