// Package cache provides a generic TTL key-value store with synchronous
// invalidation. Any conforming backend works; correctness in the classifier
// is invalidation-driven and the TTL is only a safety net.
package cache

import (
	"sync"
	"time"
)

// Cache is a TTL store for opaque byte values.
type Cache interface {
	// Get returns the value for key, or false if absent or expired.
	Get(key string) ([]byte, bool)
	// Set stores value under key with the given TTL.
	Set(key string, value []byte, ttl time.Duration)
	// Invalidate removes key synchronously.
	Invalidate(key string)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a map. Expired entries are dropped
// lazily on read and whenever a write passes through.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Set implements Cache.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	m.sweepLocked()
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if !m.now().After(e.expiresAt) {
			n++
		}
	}
	return n
}

// sweepLocked drops expired entries. Caller holds the write lock.
func (m *Memory) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
