package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/config"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubManager struct {
	err error
}

func (s stubManager) Acquire(context.Context, string, time.Duration) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	return func() {}, nil
}

func outcomes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("lock.outcome")
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestInstrumentedManager(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	metrics, err := telemetry.NewLockMetrics(provider.Meter("test"))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	ctx := context.Background()

	ok := NewInstrumentedManager(stubManager{}, metrics, log)
	release, err := ok.Acquire(ctx, "seller-number", time.Second)
	require.NoError(t, err)
	release()

	timeout := NewInstrumentedManager(stubManager{err: shared.ErrLockTimeout}, metrics, log)
	_, err = timeout.Acquire(ctx, "seller-number", time.Second)
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	broken := NewInstrumentedManager(stubManager{err: errors.New("connection refused")}, metrics, log)
	_, err = broken.Acquire(ctx, "label-number", time.Second)
	assert.EqualError(t, err, "connection refused")

	cancelled := NewInstrumentedManager(stubManager{err: context.Canceled}, metrics, log)
	_, err = cancelled.Acquire(ctx, "label-number", time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, map[string]int64{
		telemetry.LockOutcomeAcquired: 1,
		telemetry.LockOutcomeTimeout:  1,
		telemetry.LockOutcomeError:    1,
	}, outcomes(t, reader))

	require.Equal(t, 1, logs.FilterMessage("Lock wait timed out").Len())
	entry := logs.FilterMessage("Lock wait timed out").All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "seller-number", entry.ContextMap()["lock_key"])
	assert.Equal(t, 1, logs.FilterMessage("Lock backend failure").Len())
}

func TestInstrumentedManager_NilMetrics(t *testing.T) {
	m := NewInstrumentedManager(stubManager{}, nil, nil)
	release, err := m.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	release()
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{Numbering: config.NumberingConfig{LockBackend: config.LockBackendLocal}}
	mgr, closeFn, err := NewFromConfig(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &InstrumentedManager{}, mgr)
	assert.NoError(t, closeFn())

	cfg.Numbering.LockBackend = "zookeeper"
	_, _, err = NewFromConfig(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg.Numbering.LockBackend = config.LockBackendRedis
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}
	_, _, err = NewFromConfig(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
