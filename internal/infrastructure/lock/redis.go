package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "bazaar:lock:"

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisManager implements shared.LockManager with SET NX PX keys shared by
// every process that talks to the same Redis
type RedisManager struct {
	client        redis.UniversalClient
	keyPrefix     string
	lease         time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// RedisOption configures a RedisManager
type RedisOption func(*RedisManager)

// WithKeyPrefix sets the prefix prepended to every lock key
func WithKeyPrefix(prefix string) RedisOption {
	return func(m *RedisManager) {
		m.keyPrefix = prefix
	}
}

// WithLease sets how long a key lives if its holder never releases it
func WithLease(lease time.Duration) RedisOption {
	return func(m *RedisManager) {
		if lease > 0 {
			m.lease = lease
		}
	}
}

// WithRetryInterval sets the polling interval while the lock is held elsewhere
func WithRetryInterval(interval time.Duration) RedisOption {
	return func(m *RedisManager) {
		if interval > 0 {
			m.retryInterval = interval
		}
	}
}

// WithRedisLogger sets the logger used for release failures
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(m *RedisManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewRedisManager creates a lock manager on an existing client
func NewRedisManager(client redis.UniversalClient, opts ...RedisOption) *RedisManager {
	m := &RedisManager{
		client:        client,
		keyPrefix:     defaultKeyPrefix,
		lease:         time.Minute,
		retryInterval: 50 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Acquire implements shared.LockManager
func (m *RedisManager) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	redisKey := m.keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(m.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := m.client.SetNX(ctx, redisKey, token, m.lease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return m.releaser(redisKey, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, shared.ErrLockTimeout.WithMessage("timed out waiting for lock " + key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *RedisManager) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; the key must
			// still go away or the next holder waits for the lease.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := releaseScript.Run(ctx, m.client, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				m.logger.Warn("Failed to release lock, waiting for lease expiry",
					zap.String("lock_key", redisKey),
					zap.Duration("lease", m.lease),
					zap.Error(err),
				)
			}
		})
	}
}

var _ shared.LockManager = (*RedisManager)(nil)
