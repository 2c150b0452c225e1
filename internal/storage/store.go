package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const probeKey = "retain:probe"

// Defaults for Options left at their zero value.
const (
	DefaultCacheTTL        = 3 * time.Second
	DefaultDebounceDelay   = 50 * time.Millisecond
	DefaultAssumedCapacity = 5 << 20 // 5 MiB, the usual localStorage-class budget
)

// Options configures a Store.
type Options struct {
	// CacheTTL bounds how long a substrate read is served from memory.
	// The TTL is advisory staleness control; validators still run on hits.
	CacheTTL time.Duration

	// DebounceDelay is the window within which repeated writes to the
	// same key collapse to the last value.
	DebounceDelay time.Duration

	// AssumedCapacityBytes is the capacity health checks estimate usage
	// against when the substrate enforces no quota of its own.
	AssumedCapacityBytes int64

	// QuotaCleanup is given direct substrate access when a write exceeds
	// the quota. It should free space and report whether it did; the
	// failed write is then retried exactly once.
	QuotaCleanup func(Substrate) bool
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = DefaultDebounceDelay
	}
	if o.AssumedCapacityBytes <= 0 {
		o.AssumedCapacityBytes = DefaultAssumedCapacity
	}
	return o
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

type pendingWrite struct {
	value []byte
	timer *time.Timer
}

// Store makes every read and write against the substrate tolerant of
// unavailability, quota exhaustion, and corruption, while keeping writes
// cheap under high-frequency updates. The fallback map, read cache, and
// pending-writes table are explicit fields with store-lifetime scope,
// reset only through Reset.
type Store struct {
	mu        sync.Mutex
	substrate Substrate
	opts      Options

	probed    bool
	available bool
	probeErr  *StorageError

	fallback map[string][]byte
	cache    map[string]cacheEntry
	pending  map[string]*pendingWrite

	onError func(*StorageError)
}

// New wraps a substrate in a resilient store.
func New(sub Substrate, opts Options) *Store {
	return &Store{
		substrate: sub,
		opts:      opts.withDefaults(),
		fallback:  make(map[string][]byte),
		cache:     make(map[string]cacheEntry),
		pending:   make(map[string]*pendingWrite),
	}
}

// SetErrorHandler installs the single store-wide callback through which
// asynchronous failures (debounced commits, probe failures) are surfaced.
func (s *Store) SetErrorHandler(fn func(*StorageError)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *Store) report(e *StorageError) {
	if e == nil {
		return
	}
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

// Available probes the substrate on first use and caches the answer for
// the store's lifetime.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureProbeLocked()
	return s.available
}

func (s *Store) ensureProbeLocked() {
	if s.probed {
		return
	}
	s.probed = true
	err := s.substrate.Set(probeKey, []byte("1"))
	if err == nil {
		err = s.substrate.Delete(probeKey)
	}
	// A full substrate is still a usable one; only genuine failures
	// route this store to the in-memory fallback.
	if err != nil && !errors.Is(err, ErrQuotaExceeded) {
		s.available = false
		s.probeErr = NewError(KindUnavailable, probeKey, err.Error())
		return
	}
	s.available = true
}

// degradedLocked returns the recorded unavailability error, if any, so it
// can accompany otherwise-successful fallback operations.
func (s *Store) degradedLocked() *StorageError {
	if s.available {
		return nil
	}
	return s.probeErr
}

// getRaw reads a key, preferring the newest in-process value: a pending
// debounced write, then the fallback map, then the TTL cache, then the
// substrate.
func (s *Store) getRaw(key string) ([]byte, bool, *StorageError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureProbeLocked()

	if p, ok := s.pending[key]; ok {
		return p.value, true, s.degradedLocked()
	}
	if v, ok := s.fallback[key]; ok {
		return v, true, s.degradedLocked()
	}
	if !s.available {
		return nil, false, s.probeErr
	}

	if e, ok := s.cache[key]; ok && time.Now().Before(e.expires) {
		return e.value, true, nil
	}

	v, err := s.substrate.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Classify(key, err)
	}
	s.cache[key] = cacheEntry{value: v, expires: time.Now().Add(s.opts.CacheTTL)}
	return v, true, nil
}

// setRaw updates the fallback and invalidates the cache synchronously, so
// a read issued immediately after sees the new value, then schedules the
// substrate write behind the debounce window.
func (s *Store) setRaw(key string, value []byte) *StorageError {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureProbeLocked()

	s.fallback[key] = value
	delete(s.cache, key)

	if !s.available {
		return s.probeErr
	}

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	s.pending[key] = &pendingWrite{
		value: value,
		timer: time.AfterFunc(s.opts.DebounceDelay, func() { s.commit(key) }),
	}
	return nil
}

// commit writes the pending value for a key to the substrate. Failures are
// surfaced through the error handler; the fallback map stays authoritative
// for the in-process view either way.
func (s *Store) commit(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.report(s.write(key, p.value))
}

// write performs the substrate write with the single cleanup-and-retry
// cycle for quota failures.
func (s *Store) write(key string, value []byte) *StorageError {
	err := s.substrate.Set(key, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) {
		if s.opts.QuotaCleanup != nil && s.opts.QuotaCleanup(s.substrate) {
			if err = s.substrate.Set(key, value); err == nil {
				return nil
			}
		}
		return NewError(KindQuotaExceeded, key, err.Error())
	}
	return NewError(KindWriteError, key, err.Error())
}

// Flush forces all pending debounced writes to the substrate immediately.
// Call it before the process may terminate.
func (s *Store) Flush() {
	s.mu.Lock()
	writes := make(map[string][]byte, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		writes[key] = p.value
		delete(s.pending, key)
	}
	s.mu.Unlock()

	for key, value := range writes {
		s.report(s.write(key, value))
	}
}

// PendingWrites reports how many keys currently sit in the debounce window.
func (s *Store) PendingWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Remove deletes a key everywhere: fallback, cache, pending writes, and
// the substrate.
func (s *Store) Remove(key string) *StorageError {
	s.mu.Lock()
	s.ensureProbeLocked()
	delete(s.fallback, key)
	delete(s.cache, key)
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	available := s.available
	probeErr := s.probeErr
	s.mu.Unlock()

	if !available {
		return probeErr
	}
	if err := s.substrate.Delete(key); err != nil {
		e := NewError(KindWriteError, key, err.Error())
		s.report(e)
		return e
	}
	return nil
}

// Reset drops all in-memory state and forgets the availability probe. It
// exists for tests; no user-facing operation resets the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.fallback = make(map[string][]byte)
	s.cache = make(map[string]cacheEntry)
	s.pending = make(map[string]*pendingWrite)
	s.probed = false
	s.available = false
	s.probeErr = nil
}

// GetJSON reads and decodes a key. The caller always receives a usable
// value: on a miss, a decode failure, or validator rejection it is the
// supplied default, accompanied by error metadata. A raw decode error is
// never propagated.
func GetJSON[T any](s *Store, key string, def T, validate func(T) error) (T, *StorageError) {
	raw, found, serr := s.getRaw(key)
	if !found {
		return def, serr
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		e := NewError(KindCorruptedData, key, err.Error())
		s.report(e)
		return def, e
	}
	if validate != nil {
		if err := validate(v); err != nil {
			e := NewError(KindCorruptedData, key, fmt.Sprintf("validator rejected value: %v", err))
			s.report(e)
			return def, e
		}
	}
	return v, serr
}

// SetJSON encodes and writes a value behind the debounce window. Encoding
// failures are the one class that yields an error without a stored value.
func SetJSON[T any](s *Store, key string, v T) *StorageError {
	data, err := json.Marshal(v)
	if err != nil {
		e := &StorageError{
			Kind:        KindUnknown,
			Key:         key,
			Message:     fmt.Sprintf("marshal: %v", err),
			UserMessage: userMessage(KindUnknown),
			Recoverable: false,
		}
		s.report(e)
		return e
	}
	return s.setRaw(key, data)
}
