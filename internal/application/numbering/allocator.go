// Package numbering hands out seller numbers and article label numbers.
//
// Numbers are unique inside a scope (all sellers of one event, all articles
// of one seller). The read-recompute-write cycle is serialized per kind by a
// named lock held until the caller's unit of work has committed, so two
// allocations never observe the same maximum.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/bazaar/backend/internal/domain/sequence"
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLockTimeout bounds the wait for the per-kind lock
const DefaultLockTimeout = 30 * time.Second

// Kind names one numbering sequence and the columns it lives in
type Kind struct {
	Name        string // lock key
	NumberField string
	ScopeField  string
}

// Sequences used by the bazaar
var (
	SellerNumber = Kind{Name: "seller-number", NumberField: bazaar.ColumnSellerNumber, ScopeField: bazaar.ColumnEventID}
	LabelNumber  = Kind{Name: "label-number", NumberField: bazaar.ColumnLabelNumber, ScopeField: bazaar.ColumnSellerID}
)

// Numbered is an entity carrying a number inside a scope
type Numbered interface {
	shared.Entity
	SequenceNumber() int
	SetSequenceNumber(n int)
	SequenceScope() uuid.UUID
}

// Option configures an Allocator
type Option func(*settings)

type settings struct {
	timeout time.Duration
	logger  *zap.Logger
}

// WithLockTimeout sets how long WithLock waits for the lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the allocator logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Allocator assigns numbers of one kind
type Allocator[T Numbered] struct {
	kind    Kind
	locks   shared.LockManager
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an allocator for kind using locks to serialize allocations
func New[T Numbered](kind Kind, locks shared.LockManager, opts ...Option) *Allocator[T] {
	s := settings{timeout: DefaultLockTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Allocator[T]{
		kind:    kind,
		locks:   locks,
		timeout: s.timeout,
		logger:  s.logger.With(zap.String("sequence", kind.Name)),
	}
}

// Kind returns the sequence this allocator serves
func (a *Allocator[T]) Kind() Kind {
	return a.kind
}

// WithLock runs fn while holding the lock for this kind. fn should contain
// the whole unit of work, commit included. The lock is released on every
// exit path. If the lock cannot be taken in time the error is
// shared.ErrLockTimeout.
func (a *Allocator[T]) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := a.locks.Acquire(ctx, a.kind.Name, a.timeout)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Next sets the number of e to one above the current maximum of its scope
// and returns it. Must run under WithLock.
func (a *Allocator[T]) Next(ctx context.Context, store shared.Store[T], e T) (int, error) {
	max, err := store.MaxByField(ctx, a.kind.NumberField, a.kind.ScopeField, e.SequenceScope())
	if err != nil {
		return 0, fmt.Errorf("failed to read %s maximum: %w", a.kind.Name, err)
	}
	n := sequence.Next(max)
	e.SetSequenceNumber(n)
	return n, nil
}

// Claim gives e the number desired. Every other record of the scope holding
// desired is moved above the scope maximum and saved; e itself is only
// changed in memory and must be persisted by the caller in the same unit of
// work. Must run under WithLock.
func (a *Allocator[T]) Claim(ctx context.Context, store shared.Store[T], e T, desired int) error {
	if desired < 1 {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s must be positive, got %d", a.kind.NumberField, desired))
	}
	scope := e.SequenceScope()
	holders, err := store.QueryByField(ctx, a.kind.ScopeField, scope)
	if err != nil {
		return fmt.Errorf("failed to load %s scope: %w", a.kind.Name, err)
	}

	entries := make([]sequence.Entry, 0, len(holders))
	byID := make(map[uuid.UUID]T, len(holders))
	for _, h := range holders {
		id := h.GetRecord().ID
		entries = append(entries, sequence.Entry{ID: id, Number: h.SequenceNumber()})
		byID[id] = h
	}

	plan := sequence.Plan(entries, desired, e.GetRecord().ID)
	if len(plan) > 0 {
		displaced := make([]T, 0, len(plan))
		for _, as := range plan {
			h := byID[as.ID]
			a.logger.Info("Displacing number holder",
				zap.String("scope", scope.String()),
				zap.String("id", as.ID.String()),
				zap.Int("from", h.SequenceNumber()),
				zap.Int("to", as.Number),
			)
			h.SetSequenceNumber(as.Number)
			displaced = append(displaced, h)
		}
		if err := store.BulkUpdate(ctx, displaced); err != nil {
			return err
		}
	}

	e.SetSequenceNumber(desired)
	return nil
}

// AssignRun numbers es contiguously after the current maximum of scope, in
// slice order. Must run under WithLock.
func (a *Allocator[T]) AssignRun(ctx context.Context, store shared.Store[T], scope uuid.UUID, es []T) error {
	if len(es) == 0 {
		return nil
	}
	max, err := store.MaxByField(ctx, a.kind.NumberField, a.kind.ScopeField, scope)
	if err != nil {
		return fmt.Errorf("failed to read %s maximum: %w", a.kind.Name, err)
	}
	for i, n := range sequence.Run(max, len(es)) {
		es[i].SetSequenceNumber(n)
	}
	return nil
}
