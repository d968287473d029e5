package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-memory Cache used by tests and, optionally, single-process
// deployments without Redis. A background janitor goroutine evicts expired
// entries, mirroring the teacher's time.AfterFunc cleanup style.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	stopCh  chan struct{}
	stopOne sync.Once
}

// NewMemory constructs an in-memory Cache and starts its janitor loop.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		stopCh:  make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.evictExpired(now)
		}
	}
}

func (m *Memory) evictExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Set(_ context.Context, kind Kind, key string, value []byte, ttl ...time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[namespacedKey(kind, key)] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttlFor(kind, ttl)),
	}
	return nil
}

func (m *Memory) Get(_ context.Context, kind Kind, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[namespacedKey(kind, key)]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Delete(_ context.Context, kind Kind, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, namespacedKey(kind, key))
	return nil
}

func (m *Memory) Close() error {
	m.stopOne.Do(func() { close(m.stopCh) })
	return nil
}
