package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Commit(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx := context.Background()

	var id uuid.UUID
	err := scope.Execute(ctx, func(repos bazaar.Repositories) error {
		c, err := bazaar.NewCheckout(uuid.New(), uuid.New())
		if err != nil {
			return err
		}
		id, err = repos.Checkouts().Create(ctx, c)
		return err
	})
	require.NoError(t, err)

	got, err := NewCheckoutStore(db.DB).Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bazaar.CheckoutStatusInProgress, got.Status)
}

func TestGormTransactionScope_RollbackOnError(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx := context.Background()
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos bazaar.Repositories) error {
		a := newArticle(t, uuid.New(), 1, "1")
		if _, err := repos.Articles().Create(ctx, a); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := NewArticleStore(db.DB).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormTransactionScope_RollbackOnCancel(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx, cancel := context.WithCancel(context.Background())

	err := scope.Execute(ctx, func(repos bazaar.Repositories) error {
		a := newArticle(t, uuid.New(), 1, "1")
		if _, err := repos.Articles().Create(ctx, a); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	n, err := NewArticleStore(db.DB).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormTransactionScope_CancelledBeforeStart(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := scope.Execute(ctx, func(bazaar.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
