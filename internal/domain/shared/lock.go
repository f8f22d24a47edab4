package shared

import (
	"context"
	"time"
)

// LockManager hands out named, mutually exclusive locks.
//
// Acquire blocks until the lock named key is held or timeout elapses.
// On timeout it returns ErrLockTimeout; if ctx ends first it returns the
// context error. The returned release func is safe to call more than once.
type LockManager interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), err error)
}
