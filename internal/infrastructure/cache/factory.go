package cache

import (
	"fmt"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LockerFactory builds the opportunity locker selected by configuration.
type LockerFactory struct {
	commission            config.CommissionConfig
	redis                 config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a failed Redis connection degrades to
// the in-memory locker. Default true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

func NewLockerFactory(commission config.CommissionConfig, redis config.RedisConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		commission:            commission,
		redis:                 redis,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the locker and a close func for it.
func (f *LockerFactory) Create() (shared.Locker, func() error, error) {
	noClose := func() error { return nil }

	switch f.commission.LockBackend {
	case "none":
		f.logger.Info("Opportunity locking disabled, relying on database constraints")
		return shared.NoopLocker{}, noClose, nil
	case "", "memory":
		f.logger.Info("Using in-memory opportunity locker")
		return NewInMemoryLocker(), noClose, nil
	case "redis":
		client, err := NewRedisClient(f.redis)
		if err == nil {
			f.logger.Info("Using Redis opportunity locker", zap.String("addr", f.redis.Addr()))
			l := NewRedisLocker(client, "", f.logger)
			return l, l.Close, nil
		}
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("redis required for locking but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory opportunity locker. "+
			"Concurrent writers on other instances are then serialized by database constraints only.",
			zap.Error(err),
		)
		return NewInMemoryLocker(), noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown lock backend %q", f.commission.LockBackend)
}
