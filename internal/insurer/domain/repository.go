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
	ActiveOnly bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, insurer *Insurer) error
	Save(ctx context.Context, db *gorm.DB, insurer *Insurer) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*Insurer, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string, opts ...option.QueryOption) (*Insurer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Insurer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*Insurer, int64, error)
	// NameTaken compares names case-insensitively, ignoring excludeID.
	NameTaken(ctx context.Context, db *gorm.DB, name string, excludeID snowflake.ID) (bool, error)
	CodeTaken(ctx context.Context, db *gorm.DB, code string, excludeID snowflake.ID) (bool, error)
	HasPolicies(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
