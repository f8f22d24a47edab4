package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedSeller(t *testing.T) *bazaar.Seller {
	t.Helper()
	s, err := bazaar.NewSeller(uuid.New(), uuid.New(), bazaar.SellerRoleStandard, 0)
	require.NoError(t, err)
	s.ID = uuid.New()
	s.Version = 4
	s.SellerNumber = 12
	return s
}

func TestEntityStore_UpdateIsConditionalOnVersion(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewSellerStore(db)
	s := storedSeller(t)

	mock.ExpectExec(`UPDATE "sellers" SET .* WHERE id = \$7 AND version = \$8`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Update(context.Background(), s))
	assert.Equal(t, 5, s.Version)
	assert.NotNil(t, s.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_UpdateStaleVersion(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewSellerStore(db)
	s := storedSeller(t)

	mock.ExpectExec(`UPDATE "sellers" SET .* WHERE id = \$7 AND version = \$8`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "sellers" WHERE id = $1`)).
		WithArgs(s.ID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := store.Update(context.Background(), s)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 4, s.Version)
	assert.Nil(t, s.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_UpdateBackendError(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewSellerStore(db)
	s := storedSeller(t)

	mock.ExpectExec(`UPDATE "sellers"`).WillReturnError(errors.New("connection reset"))

	err := store.Update(context.Background(), s)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, shared.CodeOf(err))
	assert.Equal(t, 4, s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_FindByID(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewSellerStore(db)
	id := uuid.New()
	eventID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "payload"}).
		AddRow(id.String(), testTime, nil, 3,
			[]byte(`{"event_id":"`+eventID.String()+`","seller_number":7,"role":"HELPER"}`))
	mock.ExpectQuery(`SELECT .* FROM "sellers" WHERE "id" = \$1`).
		WillReturnRows(rows)

	s, err := store.Find(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, 3, s.Version)
	assert.Equal(t, eventID, s.EventID)
	assert.Equal(t, 7, s.SellerNumber)
	assert.Equal(t, bazaar.SellerRoleHelper, s.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_DeleteStatement(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewArticleStore(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "articles" WHERE id = $1`)).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_DeleteVersionedStatement(t *testing.T) {
	db, mock, sqlDB := newMockGorm(t)
	defer sqlDB.Close()
	store := NewCheckoutStore(db)
	c, err := bazaar.NewCheckout(uuid.New(), uuid.New())
	require.NoError(t, err)
	c.ID = uuid.New()
	c.Version = 3

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "checkouts" WHERE id = $1 AND version = $2`)).
		WithArgs(c.ID.String(), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "checkouts" WHERE id = $1`)).
		WithArgs(c.ID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err = store.DeleteVersioned(context.Background(), c)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
