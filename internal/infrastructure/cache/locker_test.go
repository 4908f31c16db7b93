package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquirer times out while held", func(t *testing.T) {
		l := NewInMemoryLocker()
		release, err := l.Acquire(ctx, "opp-1", time.Minute, 0)
		require.NoError(t, err)
		defer release()

		_, err = l.Acquire(ctx, "opp-1", time.Minute, 30*time.Millisecond)
		assert.ErrorIs(t, err, shared.ErrLockTimeout)
	})

	t.Run("different keys do not contend", func(t *testing.T) {
		l := NewInMemoryLocker()
		r1, err := l.Acquire(ctx, "opp-1", time.Minute, 0)
		require.NoError(t, err)
		r2, err := l.Acquire(ctx, "opp-2", time.Minute, 0)
		require.NoError(t, err)
		r1()
		r2()
		assert.Equal(t, 0, l.Size())
	})

	t.Run("expired hold can be taken over", func(t *testing.T) {
		l := NewInMemoryLocker()
		stale, err := l.Acquire(ctx, "opp-1", 10*time.Millisecond, 0)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)
		fresh, err := l.Acquire(ctx, "opp-1", time.Minute, 0)
		require.NoError(t, err)

		// The stale holder must not release the new hold.
		stale()
		_, err = l.Acquire(ctx, "opp-1", time.Minute, 0)
		assert.ErrorIs(t, err, shared.ErrLockTimeout)
		fresh()
	})

	t.Run("release is idempotent", func(t *testing.T) {
		l := NewInMemoryLocker()
		release, err := l.Acquire(ctx, "opp-1", time.Minute, 0)
		require.NoError(t, err)
		release()
		release()
		assert.Equal(t, 0, l.Size())
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		l := NewInMemoryLocker()
		release, err := l.Acquire(ctx, "opp-1", time.Minute, 0)
		require.NoError(t, err)
		defer release()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = l.Acquire(cctx, "opp-1", time.Minute, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInMemoryLocker_SerializesCriticalSection(t *testing.T) {
	l := NewInMemoryLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "opp", time.Minute, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLocker(client, "", nil)
	_, err := l.Acquire(context.Background(), "opp-1", time.Second, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrLockTimeout)
}

func TestLockerFactory_Create(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory", func(t *testing.T) {
		l, closeFn, err := NewLockerFactory(config.CommissionConfig{LockBackend: "memory"}, unreachable).Create()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLocker{}, l)
		assert.NoError(t, closeFn())
	})

	t.Run("none", func(t *testing.T) {
		l, _, err := NewLockerFactory(config.CommissionConfig{LockBackend: "none"}, unreachable).Create()
		require.NoError(t, err)
		assert.IsType(t, shared.NoopLocker{}, l)
	})

	t.Run("redis falls back to memory", func(t *testing.T) {
		l, _, err := NewLockerFactory(config.CommissionConfig{LockBackend: "redis"}, unreachable).Create()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLocker{}, l)
	})

	t.Run("redis without fallback fails", func(t *testing.T) {
		_, _, err := NewLockerFactory(config.CommissionConfig{LockBackend: "redis"}, unreachable, WithInMemoryFallback(false)).Create()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := NewLockerFactory(config.CommissionConfig{LockBackend: "etcd"}, unreachable).Create()
		assert.Error(t, err)
	})
}
