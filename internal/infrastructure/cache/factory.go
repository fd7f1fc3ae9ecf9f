package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/merchandising/internal/domain/shared"
	"github.com/storefront/merchandising/internal/infrastructure/config"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// LockerFactory creates keyed lockers based on configuration
type LockerFactory struct {
	redisConfig           config.RedisConfig
	placementConfig       config.PlacementConfig
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

// WithInMemoryFallback controls whether to fall back to in-process locks
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(redisCfg config.RedisConfig, placementCfg config.PlacementConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:           redisCfg,
		placementConfig:       placementCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to Redis and returns a distributed locker
// together with the client so the caller can close it on shutdown.
func (f *LockerFactory) CreateRedisLocker() (*RedisKeyedLocker, *redis.Client, error) {
	addr := f.redisConfig.Addr()
	if addr == "" {
		return nil, nil, fmt.Errorf("redis host not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	locker := NewRedisKeyedLocker(client, f.placementConfig.LockTTL, f.placementConfig.LockRetry,
		WithLockLogger(f.logger))
	return locker, client, nil
}

// CreateLocker tries Redis first and falls back to in-process locks when
// fallback is allowed. The returned close func is never nil.
func (f *LockerFactory) CreateLocker() (shared.KeyedLocker, func() error, error) {
	locker, client, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis keyed locker", zap.String("addr", f.redisConfig.Addr()))
		return locker, client.Close, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("Redis required for locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process locks. "+
		"Edits from different instances will not be serialized.",
		zap.Error(err),
	)
	return NewInMemoryKeyedLocker(), func() error { return nil }, nil
}
