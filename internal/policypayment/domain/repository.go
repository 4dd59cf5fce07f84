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
	CustomerPolicyID *snowflake.ID
	Mode             Mode
	// From and To bound paymentDate; To is exclusive.
	From *time.Time
	To   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *PolicyPayment) error
	Save(ctx context.Context, db *gorm.DB, payment *PolicyPayment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*PolicyPayment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*PolicyPayment, int64, error)
}
