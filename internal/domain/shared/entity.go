package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every record kind handled by a Store.
type Entity interface {
	GetRecord() *Record
}

// Record carries the persistence metadata of a stored entity.
// None of its fields are part of the serialized payload; they live in
// their own columns and are copied back on every read.
type Record struct {
	ID        uuid.UUID  `json:"-"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt *time.Time `json:"-"`
	// Version starts at 1 and grows by one with every successful update.
	Version int `json:"-"`
}

// GetRecord returns the record metadata
func (r *Record) GetRecord() *Record {
	return r
}

// GetID returns the record ID
func (r *Record) GetID() uuid.UUID {
	return r.ID
}

// IsNew reports whether the record has not been persisted yet
func (r *Record) IsNew() bool {
	return r.Version == 0
}
