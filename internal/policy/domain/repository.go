package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search     string
	InsurerID  *snowflake.ID
	ActiveOnly bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, policy *Policy) error
	Save(ctx context.Context, db *gorm.DB, policy *Policy) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*Policy, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string, opts ...option.QueryOption) (*Policy, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Policy, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*Policy, int64, error)
	// NameTaken compares names case-insensitively within one insurer.
	NameTaken(ctx context.Context, db *gorm.DB, insurerID snowflake.ID, name string, excludeID snowflake.ID) (bool, error)
	CodeTaken(ctx context.Context, db *gorm.DB, code string, excludeID snowflake.ID) (bool, error)
	HasBindings(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
