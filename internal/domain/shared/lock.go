package shared

import (
	"context"
	"time"
)

// Locker serializes writers on a key (for example one opportunity).
type Locker interface {
	// Acquire blocks until the key is held, ctx is done, or wait elapses.
	// The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release func(), err error)
}

// ErrLockTimeout is returned when a lock could not be obtained in time.
var ErrLockTimeout = NewDomainError("LOCK_TIMEOUT", "Another operation on this resource is in progress")

// NoopLocker never blocks. Used when the database constraints alone are the
// serialization authority.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration, time.Duration) (func(), error) {
	return func() {}, nil
}
