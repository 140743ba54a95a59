// Package repository provides a generic gorm-backed data-access component.
// Feature repositories embed a Store for their entity and add their own queries.
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
)

// DeleteMode selects what Delete does to a row.
type DeleteMode int

const (
	// HardDelete removes the row.
	HardDelete DeleteMode = iota
	// Tombstone keeps the row and clears its liveness flag.
	Tombstone
)

// DeletionPolicy is declared per entity when its store is built.
type DeletionPolicy struct {
	Mode   DeleteMode
	Column string // boolean liveness column for Tombstone
}

// Hard is the policy for rows that may be physically removed.
var Hard = DeletionPolicy{Mode: HardDelete}

// TombstoneOn keeps rows and sets column to false on delete.
func TombstoneOn(column string) DeletionPolicy {
	return DeletionPolicy{Mode: Tombstone, Column: column}
}

// Scope narrows a query.
type Scope = func(*gorm.DB) *gorm.DB

// Where builds a Scope from a condition.
func Where(query interface{}, args ...interface{}) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

// OrderBy builds an ordering Scope.
func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// Preload eager-loads an association. It is skipped on count queries.
func Preload(assoc string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if _, counting := db.Statement.Dest.(*int64); counting {
			return db
		}
		return db.Preload(assoc)
	}
}

// Store is the data-access component for entity type T. It joins any
// transaction carried on the context.
type Store[T any] struct {
	db       *gorm.DB
	resource string
	policy   DeletionPolicy
}

func NewStore[T any](db *gorm.DB, resource string, policy DeletionPolicy) *Store[T] {
	return &Store[T]{db: db, resource: resource, policy: policy}
}

// Conn returns a handle bound to ctx and its transaction, if any.
func (s *Store[T]) Conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, s.db)
}

// Resource is the human name used in NotFound errors.
func (s *Store[T]) Resource() string {
	return s.resource
}

// Live filters out tombstoned rows. For hard-deleted entities it is a no-op.
func (s *Store[T]) Live() Scope {
	return func(db *gorm.DB) *gorm.DB {
		if s.policy.Mode != Tombstone {
			return db
		}
		return db.Where(s.policy.Column+" = ?", true)
	}
}

func (s *Store[T]) Create(ctx context.Context, entity *T) error {
	return errors.FromGorm(s.Conn(ctx).Create(entity).Error, s.resource)
}

func (s *Store[T]) Save(ctx context.Context, entity *T) error {
	return errors.FromGorm(s.Conn(ctx).Save(entity).Error, s.resource)
}

// FindByID returns NotFound when no row matches.
func (s *Store[T]) FindByID(ctx context.Context, id uuid.UUID, scopes ...Scope) (*T, error) {
	return s.FindOne(ctx, append(scopes, Where("id = ?", id))...)
}

// FindOne returns the first row matching scopes, or NotFound.
func (s *Store[T]) FindOne(ctx context.Context, scopes ...Scope) (*T, error) {
	var entity T
	if err := s.Conn(ctx).Scopes(scopes...).Take(&entity).Error; err != nil {
		return nil, errors.FromGorm(err, s.resource)
	}
	return &entity, nil
}

// Find returns every row matching scopes.
func (s *Store[T]) Find(ctx context.Context, scopes ...Scope) ([]T, error) {
	var entities []T
	if err := s.Conn(ctx).Scopes(scopes...).Find(&entities).Error; err != nil {
		return nil, errors.FromGorm(err, s.resource)
	}
	return entities, nil
}

func (s *Store[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var total int64
	if err := s.Conn(ctx).Model(new(T)).Scopes(scopes...).Count(&total).Error; err != nil {
		return 0, errors.FromGorm(err, s.resource)
	}
	return total, nil
}

func (s *Store[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	total, err := s.Count(ctx, Where("id = ?", id))
	return total > 0, err
}

// List returns one page of rows plus the unpaginated total.
func (s *Store[T]) List(ctx context.Context, page database.Pagination, scopes ...Scope) ([]T, int64, error) {
	total, err := s.Count(ctx, scopes...)
	if err != nil {
		return nil, 0, err
	}

	var entities []T
	err = s.Conn(ctx).Scopes(scopes...).Scopes(page.Scope).Find(&entities).Error
	if err != nil {
		return nil, 0, errors.FromGorm(err, s.resource)
	}
	return entities, total, nil
}

// Paginate wraps List into a PaginatedResult.
func (s *Store[T]) Paginate(ctx context.Context, page database.Pagination, scopes ...Scope) (*database.PaginatedResult, error) {
	entities, total, err := s.List(ctx, page, scopes...)
	if err != nil {
		return nil, err
	}
	result := &database.PaginatedResult{
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
		Data:  entities,
	}
	result.Calculate()
	return result, nil
}

// Update applies column updates to one row; NotFound when nothing matched.
func (s *Store[T]) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := s.Conn(ctx).Model(new(T)).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return errors.FromGorm(result.Error, s.resource)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound(s.resource)
	}
	return nil
}

// Delete removes or tombstones the row according to the store's policy.
func (s *Store[T]) Delete(ctx context.Context, id uuid.UUID) error {
	if s.policy.Mode == Tombstone {
		return s.Update(ctx, id, map[string]interface{}{s.policy.Column: false})
	}

	result := s.Conn(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return errors.FromGorm(result.Error, s.resource)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound(s.resource)
	}
	return nil
}

// Restore revives a tombstoned row.
func (s *Store[T]) Restore(ctx context.Context, id uuid.UUID) error {
	if s.policy.Mode != Tombstone {
		return errors.BadRequest(s.resource + " cannot be restored")
	}
	return s.Update(ctx, id, map[string]interface{}{s.policy.Column: true})
}
