package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search           string
	CustomerPolicyID *snowflake.ID
	Status           Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, claim *Claim) error
	Save(ctx context.Context, db *gorm.DB, claim *Claim) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*Claim, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*Claim, int64, error)
	ClaimNumberTaken(ctx context.Context, db *gorm.DB, number string, excludeID snowflake.ID) (bool, error)
}
