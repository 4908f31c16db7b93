package cache

import (
	"context"
	"sync"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

const defaultPollInterval = 10 * time.Millisecond

// hold is one held key. The token distinguishes the current holder from a
// previous holder whose TTL expired.
type hold struct {
	token     string
	expiresAt time.Time
}

// InMemoryLocker implements shared.Locker with a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryLocker struct {
	mu           sync.Mutex
	holds        map[string]hold
	pollInterval time.Duration
}

func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		holds:        make(map[string]hold),
		pollInterval: defaultPollInterval,
	}
}

// Acquire polls until key is free, ctx is done or wait elapses.
func (l *InMemoryLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		if l.tryAcquire(key, token, ttl) {
			var once sync.Once
			return func() { once.Do(func() { l.release(key, token) }) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, shared.ErrLockTimeout.WithDetail("key", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *InMemoryLocker) tryAcquire(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if h, ok := l.holds[key]; ok && now.Before(h.expiresAt) {
		return false
	}
	l.holds[key] = hold{token: token, expiresAt: now.Add(ttl)}
	return true
}

func (l *InMemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.holds[key]; ok && h.token == token {
		delete(l.holds, key)
	}
}

// Size returns the number of held keys, expired holds included.
func (l *InMemoryLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holds)
}

var _ shared.Locker = (*InMemoryLocker)(nil)
