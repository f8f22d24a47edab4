package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InstrumentedManager records wait time and outcome of every acquisition and
// logs timeouts and backend failures
type InstrumentedManager struct {
	next    shared.LockManager
	metrics *telemetry.LockMetrics
	logger  *zap.Logger
}

// NewInstrumentedManager wraps next. metrics may be nil.
func NewInstrumentedManager(next shared.LockManager, metrics *telemetry.LockMetrics, logger *zap.Logger) *InstrumentedManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedManager{next: next, metrics: metrics, logger: logger}
}

// Acquire implements shared.LockManager
func (m *InstrumentedManager) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	start := time.Now()
	release, err := m.next.Acquire(ctx, key, timeout)
	waited := time.Since(start)

	switch {
	case err == nil:
		m.metrics.Record(ctx, key, telemetry.LockOutcomeAcquired, waited)
		return release, nil
	case errors.Is(err, shared.ErrLockTimeout):
		m.metrics.Record(ctx, key, telemetry.LockOutcomeTimeout, waited)
		m.logger.Warn("Lock wait timed out",
			zap.String(telemetry.AttrLockKey, key),
			zap.Duration("timeout", timeout),
			zap.Duration("waited", waited),
		)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// caller gave up, neither contention nor a backend fault
	default:
		m.metrics.Record(ctx, key, telemetry.LockOutcomeError, waited)
		m.logger.Error("Lock backend failure",
			zap.String(telemetry.AttrLockKey, key),
			zap.Error(err),
		)
	}
	return nil, err
}

var _ shared.LockManager = (*InstrumentedManager)(nil)
