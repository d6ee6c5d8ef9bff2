package store

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-process Gateway with an optional byte quota. It can be
// told to fail upcoming writes, which is how capacity exhaustion is simulated.
type MemoryStore struct {
	mu        sync.Mutex
	data      map[string][]byte
	quota     int64
	failNext  int
	writes    int
	failedAll bool
}

// NewMemoryStore creates a MemoryStore. A quota of zero means unlimited.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quota,
	}
}

func (m *MemoryStore) Read(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryStore) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.failedAll {
		return ErrCapacityExceeded
	}
	if m.failNext > 0 {
		m.failNext--
		return ErrCapacityExceeded
	}
	if m.quota > 0 {
		used := m.usedExcept(key)
		if used+int64(len(data)) > m.quota {
			return fmt.Errorf("%w: %d of %d bytes in use, %d requested", ErrCapacityExceeded, used, m.quota, len(data))
		}
	}

	v := make([]byte, len(data))
	copy(v, data)
	m.data[key] = v
	return nil
}

// Usage returns the bytes stored across all keys and the configured quota.
func (m *MemoryStore) Usage() (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedExcept(""), m.quota, nil
}

// FailNextWrites makes the next n writes fail with ErrCapacityExceeded.
func (m *MemoryStore) FailNextWrites(n int) {
	m.mu.Lock()
	m.failNext = n
	m.mu.Unlock()
}

// FailAllWrites makes every write fail until called again with false.
func (m *MemoryStore) FailAllWrites(fail bool) {
	m.mu.Lock()
	m.failedAll = fail
	m.mu.Unlock()
}

// Writes returns how many writes were attempted, failed ones included.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) usedExcept(key string) int64 {
	var n int64
	for k, v := range m.data {
		if k != key {
			n += int64(len(v))
		}
	}
	return n
}
