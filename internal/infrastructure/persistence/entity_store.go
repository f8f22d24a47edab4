package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize bounds the number of values sent in one IN list.
const DefaultBatchSize = 100

var payloadKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// recordRow is the raw shape of every entity table read.
type recordRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
	Version   int
	Payload   datatypes.JSON
}

// StoreOption customizes an EntityStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	codec     Codec
	clock     shared.Clock
	batchSize int
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		codec:     JSONCodec{},
		clock:     shared.SystemClock{},
		batchSize: DefaultBatchSize,
	}
}

// WithCodec sets the payload codec
func WithCodec(c Codec) StoreOption {
	return func(o *storeOptions) { o.codec = c }
}

// WithClock sets the clock used for created_at and updated_at
func WithClock(c shared.Clock) StoreOption {
	return func(o *storeOptions) { o.clock = c }
}

// WithBatchSize sets the IN list chunk size. Values below 1 are ignored.
func WithBatchSize(n int) StoreOption {
	return func(o *storeOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// EntityStore persists entities of one kind as a JSON payload plus
// promoted columns, guarding updates with the row version.
type EntityStore[T shared.Entity] struct {
	db     *gorm.DB
	schema Schema[T]
	opts   storeOptions
}

// NewEntityStore creates a store for schema on db
func NewEntityStore[T shared.Entity](db *gorm.DB, schema Schema[T], opts ...StoreOption) *EntityStore[T] {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &EntityStore[T]{db: db, schema: schema, opts: o}
}

// WithDB returns a copy of the store bound to db, typically a transaction
func (s *EntityStore[T]) WithDB(db *gorm.DB) *EntityStore[T] {
	return &EntityStore[T]{db: db, schema: s.schema, opts: s.opts}
}

// Table returns the table the store writes to
func (s *EntityStore[T]) Table() string {
	return s.schema.Table
}

func (s *EntityStore[T]) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.schema.Table)
}

// Create inserts entity as a new row with version 1.
// A nil ID is replaced by a fresh one.
func (s *EntityStore[T]) Create(ctx context.Context, entity T) (uuid.UUID, error) {
	rec := entity.GetRecord()
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := s.opts.clock.Now()

	values, err := s.rowValues(entity)
	if err != nil {
		return uuid.Nil, err
	}
	values[columnID] = id
	values[columnCreatedAt] = createdAt
	values[columnUpdatedAt] = nil
	values[columnVersion] = 1

	if err := s.table(ctx).Create(values).Error; err != nil {
		return uuid.Nil, fmt.Errorf("insert into %s: %w", s.schema.Table, translateError(err))
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	rec.UpdatedAt = nil
	rec.Version = 1
	return id, nil
}

// Find loads one entity by ID
func (s *EntityStore[T]) Find(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	items, err := s.scan(s.table(ctx).Where(clause.Eq{Column: clause.Column{Name: columnID}, Value: id}).Limit(1))
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, shared.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", s.schema.Table, id))
	}
	return items[0], nil
}

// FindMany loads every existing entity among ids. Missing ids are skipped and
// the result order is unspecified.
func (s *EntityStore[T]) FindMany(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		values = append(values, id)
	}
	return s.queryIn(ctx, columnID, values)
}

// QueryByField loads entities whose promoted column field matches value
func (s *EntityStore[T]) QueryByField(ctx context.Context, field string, value any) ([]T, error) {
	if !s.schema.IsQueryable(field) {
		return nil, unknownField(s.schema.Table, field)
	}
	if values, ok := sliceValues(value); ok {
		return s.queryIn(ctx, field, values)
	}
	return s.scan(s.table(ctx).Where(columnCondition(field, value)))
}

// QueryByPayloadField loads entities whose payload key field matches value.
// A nil value matches payloads without the key.
func (s *EntityStore[T]) QueryByPayloadField(ctx context.Context, field string, value any) ([]T, error) {
	return s.queryPayload(ctx, nil, field, value)
}

// QueryScopedByPayloadField is QueryByPayloadField restricted to rows whose
// promoted column scopeField equals scopeValue.
func (s *EntityStore[T]) QueryScopedByPayloadField(ctx context.Context, scopeField string, scopeValue any, field string, value any) ([]T, error) {
	if !s.schema.IsQueryable(scopeField) {
		return nil, unknownField(s.schema.Table, scopeField)
	}
	return s.queryPayload(ctx, columnCondition(scopeField, scopeValue), field, value)
}

func (s *EntityStore[T]) queryPayload(ctx context.Context, scope clause.Expression, field string, value any) ([]T, error) {
	if !payloadKeyPattern.MatchString(field) {
		return nil, unknownField(s.schema.Table, field)
	}
	base := func() *gorm.DB {
		q := s.table(ctx)
		if scope != nil {
			q = q.Where(scope)
		}
		return q
	}
	values, isSet := sliceValues(value)
	if !isSet {
		return s.scan(base().Where(payloadCondition(field, value)))
	}

	var out []T
	for _, chunk := range chunk(values, s.opts.batchSize) {
		exprs := make([]clause.Expression, 0, len(chunk))
		for _, v := range chunk {
			exprs = append(exprs, payloadCondition(field, v))
		}
		items, err := s.scan(base().Where(clause.Or(exprs...)))
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Update writes entity if its version still matches the stored row.
// On success the in-memory version and updated_at advance.
func (s *EntityStore[T]) Update(ctx context.Context, entity T) error {
	now := s.opts.clock.Now()
	if err := s.updateRow(ctx, s.db, entity, now); err != nil {
		return err
	}
	advance(entity.GetRecord(), now)
	return nil
}

// BulkUpdate applies Update to every entity in one transaction. Any failure
// rolls back the whole batch and leaves every in-memory version untouched.
func (s *EntityStore[T]) BulkUpdate(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	now := s.opts.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entities {
			if err := s.updateRow(ctx, tx, e, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, e := range entities {
		advance(e.GetRecord(), now)
	}
	return nil
}

// Delete removes the row with id and reports how many rows were deleted
func (s *EntityStore[T]) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id = ?", clause.Table{Name: s.schema.Table}, id)
	if result.Error != nil {
		return 0, fmt.Errorf("delete from %s: %w", s.schema.Table, translateError(result.Error))
	}
	return result.RowsAffected, nil
}

// DeleteVersioned removes entity's row only if its version still matches,
// so a row changed since it was read is never deleted blindly.
func (s *EntityStore[T]) DeleteVersioned(ctx context.Context, entity T) error {
	rec := entity.GetRecord()
	result := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id = ? AND version = ?",
		clause.Table{Name: s.schema.Table}, rec.ID, rec.Version)
	if result.Error != nil {
		return fmt.Errorf("delete from %s: %w", s.schema.Table, translateError(result.Error))
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return s.missingOrStale(ctx, s.db, rec)
}

// Count returns the number of rows in the table
func (s *EntityStore[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.table(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", s.schema.Table, err)
	}
	return n, nil
}

// CountByField counts rows whose promoted column field matches value
func (s *EntityStore[T]) CountByField(ctx context.Context, field string, value any) (int64, error) {
	if !s.schema.IsQueryable(field) {
		return 0, unknownField(s.schema.Table, field)
	}
	var cond clause.Expression
	if values, ok := sliceValues(value); ok {
		cond = clause.IN{Column: clause.Column{Name: field}, Values: values}
	} else {
		cond = columnCondition(field, value)
	}
	var n int64
	if err := s.table(ctx).Where(cond).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s by %s: %w", s.schema.Table, field, err)
	}
	return n, nil
}

// MaxByField returns MAX(field) over rows where scopeField equals
// scopeValue, or 0 when no row matches.
func (s *EntityStore[T]) MaxByField(ctx context.Context, field, scopeField string, scopeValue any) (int, error) {
	if !s.schema.IsQueryable(field) {
		return 0, unknownField(s.schema.Table, field)
	}
	if !s.schema.IsQueryable(scopeField) {
		return 0, unknownField(s.schema.Table, scopeField)
	}
	var max sql.NullInt64
	err := s.table(ctx).
		Select("MAX(?)", clause.Column{Name: field}).
		Where(columnCondition(scopeField, scopeValue)).
		Row().
		Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max %s.%s: %w", s.schema.Table, field, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

func (s *EntityStore[T]) updateRow(ctx context.Context, db *gorm.DB, entity T, now time.Time) error {
	rec := entity.GetRecord()
	values, err := s.rowValues(entity)
	if err != nil {
		return err
	}
	values[columnVersion] = rec.Version + 1
	values[columnUpdatedAt] = now

	result := db.WithContext(ctx).
		Table(s.schema.Table).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("update %s %s: %w", s.schema.Table, rec.ID, translateError(result.Error))
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return s.missingOrStale(ctx, db, rec)
}

// missingOrStale explains why a version-guarded write touched no row
func (s *EntityStore[T]) missingOrStale(ctx context.Context, db *gorm.DB, rec *shared.Record) error {
	var n int64
	if err := db.WithContext(ctx).Table(s.schema.Table).Where("id = ?", rec.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s %s: %w", s.schema.Table, rec.ID, err)
	}
	if n == 0 {
		return shared.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", s.schema.Table, rec.ID))
	}
	return shared.ErrConcurrencyConflict.WithMessage(
		fmt.Sprintf("%s %s was modified by another process (version %d is stale)", s.schema.Table, rec.ID, rec.Version))
}

func (s *EntityStore[T]) rowValues(entity T) (map[string]any, error) {
	payload, err := s.opts.codec.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", s.schema.Table, err)
	}
	values := map[string]any{columnPayload: datatypes.JSON(payload)}
	if s.schema.Columns != nil {
		for k, v := range s.schema.Columns(entity) {
			values[k] = normalizeValue(v)
		}
	}
	return values, nil
}

func (s *EntityStore[T]) queryIn(ctx context.Context, field string, values []any) ([]T, error) {
	var out []T
	for _, chunk := range chunk(values, s.opts.batchSize) {
		items, err := s.scan(s.table(ctx).Where(clause.IN{Column: clause.Column{Name: field}, Values: chunk}))
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (s *EntityStore[T]) scan(q *gorm.DB) ([]T, error) {
	var rows []recordRow
	if err := q.Select(recordColumns).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", s.schema.Table, err)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *EntityStore[T]) decode(row recordRow) (T, error) {
	e := s.schema.New()
	if err := s.opts.codec.Unmarshal(row.Payload, e); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s %s payload: %w", s.schema.Table, row.ID, err)
	}
	rec := e.GetRecord()
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	rec.UpdatedAt = row.UpdatedAt
	rec.Version = row.Version
	return e, nil
}

func advance(rec *shared.Record, now time.Time) {
	rec.Version++
	rec.UpdatedAt = &now
}

func unknownField(table, field string) error {
	return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("field %q cannot be queried on %s", field, table))
}

func columnCondition(field string, value any) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: field}, Value: normalizeValue(value)}
}

func payloadCondition(field string, value any) clause.Expression {
	v := normalizeValue(value)
	if v == nil {
		return clause.Not(datatypes.JSONQuery(columnPayload).HasKey(field))
	}
	return datatypes.JSONQuery(columnPayload).Equals(v, field)
}

// normalizeValue turns typed nils into nil and named string types or ids
// into plain strings so they compare equal to their stored form.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case time.Time, datatypes.JSON, []byte:
		return v
	case uuid.UUID:
		return t.String()
	case *uuid.UUID:
		if t == nil {
			return nil
		}
		return t.String()
	case fmt.Stringer:
		if isNil(v) {
			return nil
		}
		return t.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	case reflect.String:
		return rv.String()
	}
	return v
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// sliceValues reports whether value is a set of values and returns its
// elements normalized. Byte slices are single values.
func sliceValues(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = normalizeValue(rv.Index(i).Interface())
	}
	return out, true
}

func chunk(values []any, size int) [][]any {
	if len(values) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]any
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		out = append(out, values[start:end])
	}
	return out
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.ErrConstraintViolation.Wrap(err)
	}
	return err
}

// isUniqueViolation is the fallback for connections opened without
// gorm's TranslateError, e.g. a raw *gorm.DB handed to NewEntityStore, where
// sqlite3 and pgx errors reach the store untranslated.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
