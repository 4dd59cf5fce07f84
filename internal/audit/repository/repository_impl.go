package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.AuditLog]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.store.Insert(ctx, db, entry)
}

// List reads newest first. One extra row past Limit is returned so the
// caller can tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	opts := []option.QueryOption{
		option.Equal("action", filter.Action),
		option.Equal("entity_type", filter.EntityType),
		option.Equal("entity_id", filter.EntityID),
		option.Equal("actor_id", filter.ActorID),
		createdBetween(filter.StartAt, filter.EndAt),
		before(filter.Cursor),
		option.OrderBy("created_at desc, id desc"),
	}
	if filter.Limit > 0 {
		opts = append(opts, option.ApplyPage(0, filter.Limit+1))
	}
	return r.store.Find(ctx, db, opts...)
}

func createdBetween(start, end *time.Time) option.QueryOption {
	return option.Func(func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where("created_at >= ?", start.UTC())
		}
		if end != nil {
			db = db.Where("created_at <= ?", end.UTC())
		}
		return db
	})
}

// before keeps rows strictly older than the cursor in (created_at, id) order.
func before(cursor *domain.AuditCursor) option.QueryOption {
	return option.Func(func(db *gorm.DB) *gorm.DB {
		if cursor == nil {
			return db
		}
		return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	})
}
