// Package cache defines the key-value store the pipeline is parameterized
// by. The interface takes an explicit TTL per call; there is no ambient cache
// singleton, so tests inject a deterministic fake and production wires the
// in-memory implementation. Concurrent misses may recompute redundantly;
// callers must not rely on single-flight deduplication.
package cache

import (
	"strings"
	"sync"
	"time"
)

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	// DeletePrefix removes every entry whose key starts with prefix and
	// returns the number removed. Used by webhook and manual invalidation.
	DeletePrefix(prefix string) int
}

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Memory is a concurrency-safe in-process Cache. A janitor goroutine sweeps
// expired entries; reads also drop expired entries lazily so correctness
// never depends on the sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	stop    chan struct{}
	once    sync.Once
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
}

func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, found := m.entries[key]
	m.mu.RUnlock()
	if !found {
		return nil, false
	}
	if e.expired(time.Now()) {
		m.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartJanitor sweeps expired entries every interval until Close.
func (m *Memory) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}
