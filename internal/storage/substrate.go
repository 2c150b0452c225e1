package storage

import (
	"errors"
	"sync"
)

// Sentinel errors reported by substrates.
var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	ErrUnavailable   = errors.New("storage: substrate unavailable")
)

// Substrate is the host's persistent key-value surface. Implementations
// report ErrNotFound for missing keys and ErrQuotaExceeded when a write
// would exceed their capacity.
type Substrate interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// Sizer is implemented by substrates that can report how many bytes of
// value data they currently hold.
type Sizer interface {
	UsedBytes() (int64, error)
}

// MemorySubstrate is an in-process substrate. It backs tests and the
// degraded no-persistence mode, and enforces an optional byte quota so
// quota handling can be exercised without a real backing store.
type MemorySubstrate struct {
	mu       sync.Mutex
	data     map[string][]byte
	maxBytes int64 // 0 means unlimited
}

// NewMemorySubstrate returns an empty in-memory substrate. maxBytes of
// zero disables the quota.
func NewMemorySubstrate(maxBytes int64) *MemorySubstrate {
	return &MemorySubstrate{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemorySubstrate) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemorySubstrate) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 {
		used := m.usedLocked() - int64(len(m.data[key])) + int64(len(value))
		if used > m.maxBytes {
			return ErrQuotaExceeded
		}
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemorySubstrate) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemorySubstrate) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemorySubstrate) Close() error { return nil }

func (m *MemorySubstrate) UsedBytes() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedLocked(), nil
}

func (m *MemorySubstrate) usedLocked() int64 {
	var n int64
	for _, v := range m.data {
		n += int64(len(v))
	}
	return n
}
