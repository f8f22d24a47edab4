package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"golang.org/x/sync/semaphore"
)

// LocalManager implements shared.LockManager with one weighted semaphore per
// key. It serializes goroutines of a single process only; deployments with
// more than one instance need RedisManager.
type LocalManager struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewLocalManager creates an in-process lock manager
func NewLocalManager() *LocalManager {
	return &LocalManager{locks: make(map[string]*semaphore.Weighted)}
}

func (m *LocalManager) semaphore(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.locks[key] = sem
	}
	return sem
}

// Acquire implements shared.LockManager
func (m *LocalManager) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sem := m.semaphore(key)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.ErrLockTimeout.WithMessage("timed out waiting for lock " + key)
		}
		return nil, err
	}

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

var _ shared.LockManager = (*LocalManager)(nil)
