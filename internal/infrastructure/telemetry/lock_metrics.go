package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lock acquisition outcomes
const (
	LockOutcomeAcquired = "acquired"
	LockOutcomeTimeout  = "timeout"
	LockOutcomeError    = "error"
)

var (
	attrLockKey     = attribute.Key("lock.key")
	attrLockOutcome = attribute.Key("lock.outcome")
)

// LockMetrics records how long callers wait for named locks and how each
// wait ends, so contention (timeouts) can be told apart from backend failures.
type LockMetrics struct {
	wait     metric.Float64Histogram
	attempts metric.Int64Counter
}

// NewLockMetrics creates the lock instruments on meter. A nil meter uses the
// global meter provider.
func NewLockMetrics(meter metric.Meter) (*LockMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(TracerName)
	}
	wait, err := meter.Float64Histogram("bazaar.lock.wait.duration",
		metric.WithDescription("Time spent waiting for a named lock"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock wait histogram: %w", err)
	}
	attempts, err := meter.Int64Counter("bazaar.lock.acquire.total",
		metric.WithDescription("Lock acquisition attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock attempt counter: %w", err)
	}
	return &LockMetrics{wait: wait, attempts: attempts}, nil
}

// Record stores one acquisition attempt
func (m *LockMetrics) Record(ctx context.Context, key, outcome string, waited time.Duration) {
	if m == nil {
		return
	}
	opts := metric.WithAttributes(attrLockKey.String(key), attrLockOutcome.String(outcome))
	m.wait.Record(ctx, waited.Seconds(), opts)
	m.attempts.Add(ctx, 1, opts)
}
