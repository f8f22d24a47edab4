package lock

import (
	"context"
	"fmt"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/config"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// NewFromConfig builds the lock manager selected by numbering.lock_backend,
// wrapped with metrics and logging. The returned close func releases the
// Redis client when one was opened.
func NewFromConfig(ctx context.Context, cfg *config.Config, metrics *telemetry.LockMetrics, logger *zap.Logger) (shared.LockManager, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	switch cfg.Numbering.LockBackend {
	case config.LockBackendLocal, "":
		logger.Info("Using in-process lock manager")
		return NewInstrumentedManager(NewLocalManager(), metrics, logger), noop, nil

	case config.LockBackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using Redis lock manager",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Duration("lease", cfg.Numbering.LockLease),
		)
		mgr := NewRedisManager(client,
			WithLease(cfg.Numbering.LockLease),
			WithRetryInterval(cfg.Numbering.LockRetryInterval),
			WithRedisLogger(logger),
		)
		return NewInstrumentedManager(mgr, metrics, logger), client.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported lock backend: %s", cfg.Numbering.LockBackend)
	}
}
