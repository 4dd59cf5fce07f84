package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository is append-only: entries are never updated or removed.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
