package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.PolicyPayment]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.PolicyPayment) error {
	return r.store.Insert(ctx, db, payment)
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, payment *domain.PolicyPayment) error {
	return r.store.Save(ctx, db, payment)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error) {
	return r.store.Delete(ctx, db, id, opts...)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.PolicyPayment, error) {
	return r.store.FindByID(ctx, db, id, opts...)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*domain.PolicyPayment, int64, error) {
	if filter.CustomerPolicyID != nil {
		opts = append(opts, option.Where("customer_policy_id = ?", *filter.CustomerPolicyID))
	}
	opts = append(opts, option.Equal("mode_of_payment", string(filter.Mode)))
	if filter.From != nil {
		opts = append(opts, option.Where("payment_date >= ?", *filter.From))
	}
	if filter.To != nil {
		opts = append(opts, option.Where("payment_date < ?", *filter.To))
	}
	return r.store.List(ctx, db, page, opts...)
}
