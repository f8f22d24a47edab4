package shared

import (
	"context"

	"github.com/google/uuid"
)

// Store persists one entity kind as a versioned payload row.
type Store[T Entity] interface {
	Create(ctx context.Context, entity T) (uuid.UUID, error)
	Find(ctx context.Context, id uuid.UUID) (T, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]T, error)
	// QueryByField matches a promoted column. A slice value matches any of
	// its elements and a nil value matches NULL.
	QueryByField(ctx context.Context, field string, value any) ([]T, error)
	// QueryByPayloadField matches a top level key of the JSON payload. A nil
	// value matches rows where the key is absent.
	QueryByPayloadField(ctx context.Context, field string, value any) ([]T, error)
	// QueryScopedByPayloadField is QueryByPayloadField limited to rows whose
	// promoted column scopeField equals scopeValue.
	QueryScopedByPayloadField(ctx context.Context, scopeField string, scopeValue any, field string, value any) ([]T, error)
	Update(ctx context.Context, entity T) error
	BulkUpdate(ctx context.Context, entities []T) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	// DeleteVersioned deletes entity's row if its version is unchanged and
	// fails with ErrConcurrencyConflict otherwise.
	DeleteVersioned(ctx context.Context, entity T) error
	Count(ctx context.Context) (int64, error)
	CountByField(ctx context.Context, field string, value any) (int64, error)
	// MaxByField returns the largest value of field among rows whose
	// scopeField equals scopeValue, or 0 when there are none.
	MaxByField(ctx context.Context, field, scopeField string, scopeValue any) (int, error)
}
