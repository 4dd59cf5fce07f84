package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search     string
	CustomerID *snowflake.ID
	PolicyID   *snowflake.ID
	InsurerID  *snowflake.ID
	Status     Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, binding *CustomerPolicy) error
	Save(ctx context.Context, db *gorm.DB, binding *CustomerPolicy) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*CustomerPolicy, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*CustomerPolicy, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*CustomerPolicy, int64, error)
	PolicyNumberTaken(ctx context.Context, db *gorm.DB, number string, excludeID snowflake.ID) (bool, error)
	// HasDependents reports whether any payment or claim references the binding.
	HasDependents(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// ListActiveAfter pages active bindings in id order for the maturity sweep.
	ListActiveAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*CustomerPolicy, error)
	// UpdateDueDate overwrites the due date; last write wins.
	UpdateDueDate(ctx context.Context, db *gorm.DB, id snowflake.ID, due *time.Time, updatedBy string, at time.Time) error
}
