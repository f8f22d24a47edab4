package persistence

import (
	"slices"

	"github.com/bazaar/backend/internal/domain/shared"
)

// Base columns present on every entity table
const (
	columnID        = "id"
	columnCreatedAt = "created_at"
	columnUpdatedAt = "updated_at"
	columnVersion   = "version"
	columnPayload   = "payload"
)

var recordColumns = []string{columnID, columnCreatedAt, columnUpdatedAt, columnVersion, columnPayload}

// Schema describes how one entity kind maps onto its table.
type Schema[T shared.Entity] struct {
	// Table is the table name.
	Table string
	// New returns an empty entity to decode a payload into.
	New func() T
	// Columns extracts the promoted scalar columns written next to the payload.
	Columns func(T) map[string]any
	// Queryable lists the promoted columns callers may filter on.
	Queryable []string
}

// IsQueryable checks field against the whitelist of filterable columns
func (s Schema[T]) IsQueryable(field string) bool {
	return field == columnID || slices.Contains(s.Queryable, field)
}
