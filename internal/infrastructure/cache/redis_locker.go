package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/merchandising/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix = "merchandising:lock:"
	releaseTimeout    = 2 * time.Second
	defaultLockTTL    = 30 * time.Second
	defaultLockRetry  = 50 * time.Millisecond
)

// releaseScript deletes the lock only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript renews the lease only while it still carries our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisKeyedLocker is a KeyedLocker shared by every instance talking to the
// same Redis. Each lock is a SET NX PX lease holding a random token; the
// holder renews the lease until it unlocks.
type RedisKeyedLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// RedisLockerOption configures a RedisKeyedLocker
type RedisLockerOption func(*RedisKeyedLocker)

// WithLockPrefix sets the key prefix
func WithLockPrefix(prefix string) RedisLockerOption {
	return func(l *RedisKeyedLocker) {
		l.prefix = prefix
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisKeyedLocker) {
		l.logger = logger
	}
}

// NewRedisKeyedLocker creates a locker with the given lease TTL and retry interval
func NewRedisKeyedLocker(client redis.UniversalClient, ttl, retry time.Duration, opts ...RedisLockerOption) *RedisKeyedLocker {
	l := &RedisKeyedLocker{
		client: client,
		prefix: defaultLockPrefix,
		ttl:    ttl,
		retry:  retry,
		logger: zap.NewNop(),
	}
	if l.ttl <= 0 {
		l.ttl = defaultLockTTL
	}
	if l.retry <= 0 {
		l.retry = defaultLockRetry
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls until the lease is acquired or ctx is done
func (l *RedisKeyedLocker) Lock(ctx context.Context, key string) (shared.UnlockFunc, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.hold(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// hold renews the lease every third of the TTL until the returned func runs
func (l *RedisKeyedLocker) hold(redisKey, token string) shared.UnlockFunc {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
				err := extendScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Err()
				cancel()
				if err != nil {
					l.logger.Warn("failed to extend lock lease", zap.String("key", redisKey), zap.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}

var _ shared.KeyedLocker = (*RedisKeyedLocker)(nil)
