package memory

import (
	"sync"
	"sync/atomic"
	"time"
)

// NoExpiry marks a value that never expires.
const NoExpiry int64 = -1

// StoredValue is one entry of the keyspace.
type StoredValue struct {
	Payload string `json:"payload"`

	// ExpiresAt is an absolute Unix time in milliseconds, or NoExpiry.
	ExpiresAt int64 `json:"expires_at"`
}

// HasExpiry reports whether the value carries an expiry.
func (v StoredValue) HasExpiry() bool {
	return v.ExpiresAt != NoExpiry
}

// ExpiredAt reports whether the value is dead at nowMs.
func (v StoredValue) ExpiredAt(nowMs int64) bool {
	return v.ExpiresAt != NoExpiry && nowMs >= v.ExpiresAt
}

// Clock returns the current time in Unix milliseconds.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// Store is the single-lock keyspace.
type Store struct {
	mu    sync.Mutex
	data  map[string]StoredValue
	clock Clock

	evicted atomic.Uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the clock used to decide expiry.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:  make(map[string]StoredValue),
		clock: SystemClock,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Exec runs fn with exclusive access to the keyspace. The clock is sampled
// once before fn runs and is available as tx.Now().
// fn must not block on I/O.
func (s *Store) Exec(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s, now: s.clock()}
	fn(tx)
	if tx.evicted > 0 {
		s.evicted.Add(uint64(tx.evicted))
	}
}

// Len returns the number of stored entries, including dead ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Evicted returns the total number of entries removed by lazy expiry.
func (s *Store) Evicted() uint64 {
	return s.evicted.Load()
}

// Dump returns a copy of every entry, expiry metadata included.
func (s *Store) Dump() map[string]StoredValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StoredValue, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Restore replaces the keyspace with entries, skipping the ones already dead.
// It returns the number of entries loaded.
func (s *Store) Restore(entries map[string]StoredValue) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	data := make(map[string]StoredValue, len(entries))
	for k, v := range entries {
		if v.ExpiredAt(now) {
			continue
		}
		data[k] = v
	}
	s.data = data
	return len(data)
}

// Status is the outcome of looking a key up.
type Status int

const (
	// Missing means the key is not stored.
	Missing Status = iota
	// Expired means the key was stored but dead; it has been evicted.
	Expired
	// Live means the key is stored and not expired.
	Live
)

// Tx is the view of the keyspace handed to an Exec callback.
// It is only valid for the duration of that callback.
type Tx struct {
	store   *Store
	now     int64
	evicted int
}

// Now returns the time sampled for this transaction.
func (tx *Tx) Now() int64 {
	return tx.now
}

// Lookup returns the value stored at key. A dead entry is removed and
// reported as Expired.
func (tx *Tx) Lookup(key string) (StoredValue, Status) {
	v, ok := tx.store.data[key]
	if !ok {
		return StoredValue{}, Missing
	}
	if v.ExpiredAt(tx.now) {
		delete(tx.store.data, key)
		tx.evicted++
		return StoredValue{}, Expired
	}
	return v, Live
}

// Get returns the live value at key.
func (tx *Tx) Get(key string) (StoredValue, bool) {
	v, st := tx.Lookup(key)
	return v, st == Live
}

// Set upserts key.
func (tx *Tx) Set(key string, v StoredValue) {
	tx.store.data[key] = v
}

// Delete removes key and reports whether it was stored, dead or alive.
func (tx *Tx) Delete(key string) bool {
	if _, ok := tx.store.data[key]; !ok {
		return false
	}
	delete(tx.store.data, key)
	return true
}

// Len returns the number of stored entries.
func (tx *Tx) Len() int {
	return len(tx.store.data)
}

// Range calls fn for every live entry, evicting dead ones on the way.
// Iteration stops when fn returns false.
func (tx *Tx) Range(fn func(key string, v StoredValue) bool) {
	for k, v := range tx.store.data {
		if v.ExpiredAt(tx.now) {
			delete(tx.store.data, k)
			tx.evicted++
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}
