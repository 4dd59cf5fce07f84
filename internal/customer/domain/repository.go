package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*Customer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*Customer, int64, error)
}

type ListFilter struct {
	Search string
}
