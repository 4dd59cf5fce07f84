// Package repository provides a stateless generic gorm store shared by the
// domain repositories.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"gorm.io/gorm"
)

// Store runs common queries for model T. Missing records are reported as
// nil, nil.
type Store[T any] struct{}

func (Store[T]) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*T, error) {
	return Store[T]{}.FindOne(ctx, db, append([]option.QueryOption{option.Where("id = ?", id)}, opts...)...)
}

func (Store[T]) FindOne(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) (*T, error) {
	var result T
	err := build[T](ctx, db, opts).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (Store[T]) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, opts ...option.QueryOption) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var result []*T
	err := build[T](ctx, db, append([]option.QueryOption{option.Where("id IN ?", ids)}, opts...)).
		Find(&result).Error
	return result, err
}

// Find returns every row matching opts without counting. Ordering and
// limits come from opts.
func (Store[T]) Find(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	if err := build[T](ctx, db, opts).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// List returns one page ordered newest first together with the total count
// of rows matching opts.
func (Store[T]) List(ctx context.Context, db *gorm.DB, page pagination.Page, opts ...option.QueryOption) ([]*T, int64, error) {
	total, err := Store[T]{}.Count(ctx, db, opts...)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*T{}, 0, nil
	}

	var result []*T
	err = build[T](ctx, db, opts).
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&result).Error
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (Store[T]) Count(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := build[T](ctx, db, opts).Count(&count).Error
	return count, err
}

func (Store[T]) Exists(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) (bool, error) {
	var row T
	err := build[T](ctx, db, opts).Select("id").Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (Store[T]) Insert(ctx context.Context, db *gorm.DB, resource *T) error {
	return db.WithContext(ctx).Create(resource).Error
}

// Save writes every column of resource.
func (Store[T]) Save(ctx context.Context, db *gorm.DB, resource *T) error {
	return db.WithContext(ctx).Save(resource).Error
}

// Updates writes the given columns on the row with id.
func (Store[T]) Updates(ctx context.Context, db *gorm.DB, id snowflake.ID, columns map[string]any) (int64, error) {
	res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(columns)
	return res.RowsAffected, res.Error
}

func (Store[T]) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error) {
	stmt := db.WithContext(ctx).Where("id = ?", id)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	res := stmt.Delete(new(T))
	return res.RowsAffected, res.Error
}

func build[T any](ctx context.Context, db *gorm.DB, opts []option.QueryOption) *gorm.DB {
	stmt := db.WithContext(ctx).Model(new(T))
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		stmt = opt.Apply(stmt)
	}
	return stmt
}

// IDs collects the distinct non-zero keys of items in first-seen order.
func IDs[T any](items []*T, key func(*T) snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(items))
	out := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		id := key(item)
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Index maps items by key.
func Index[T any](items []*T, key func(*T) snowflake.ID) map[snowflake.ID]*T {
	out := make(map[snowflake.ID]*T, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out[key(item)] = item
	}
	return out
}
