package persistence

import (
	"context"

	"github.com/bazaar/backend/internal/domain/bazaar"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple store operations.
type GormTransactionScope struct {
	db    *gorm.DB
	repos *GormRepositories
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...StoreOption) *GormTransactionScope {
	return &GormTransactionScope{db: db, repos: NewRepositories(db, opts...)}
}

// Execute runs fn within a database transaction. The stores handed to fn
// share that transaction. If fn returns an error, or ctx is done by the time
// fn returns, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos bazaar.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(s.repos.withDB(tx)); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// Ensure GormTransactionScope implements TransactionScope
var _ bazaar.TransactionScope = (*GormTransactionScope)(nil)
