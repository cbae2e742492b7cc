package cache

import (
	"context"
	"sync"
	"time"

	"ArticleRelay/internal/ports"
)

// Memory is the in-process SessionCache and Locker used when Redis is not
// configured. State does not survive a restart.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	locks  map[string]memoryLock
	seq    uint64
	now    func() time.Time
}

type memoryLock struct {
	token   uint64
	expires time.Time
}

var (
	_ ports.SessionCache = (*Memory)(nil)
	_ ports.Locker       = (*Memory)(nil)
)

// NewMemory builds an empty store.
func NewMemory() *Memory {
	return &Memory{
		values: map[string]string{},
		locks:  map[string]memoryLock{},
		now:    time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Acquire grants the lock unless an unexpired holder exists.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if held, ok := m.locks[key]; ok && (held.expires.IsZero() || now.Before(held.expires)) {
		return nil, false, nil
	}

	m.seq++
	lock := memoryLock{token: m.seq}
	if ttl > 0 {
		lock.expires = now.Add(ttl)
	}
	m.locks[key] = lock

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.locks[key]; ok && cur.token == lock.token {
			delete(m.locks, key)
		}
	}
	return release, true, nil
}
