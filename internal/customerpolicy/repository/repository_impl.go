package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/tutorbase/internal/claim/domain"
	"github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	paymentdomain "github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store    repository.Store[domain.CustomerPolicy]
	payments repository.Store[paymentdomain.PolicyPayment]
	claims   repository.Store[claimdomain.Claim]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, binding *domain.CustomerPolicy) error {
	return r.store.Insert(ctx, db, binding)
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, binding *domain.CustomerPolicy) error {
	return r.store.Save(ctx, db, binding)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error) {
	return r.store.Delete(ctx, db, id, opts...)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.CustomerPolicy, error) {
	return r.store.FindByID(ctx, db, id, opts...)
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.CustomerPolicy, error) {
	return r.store.FindByIDs(ctx, db, ids)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*domain.CustomerPolicy, int64, error) {
	opts = append(opts, option.Search(filter.Search, "policy_number"))
	if filter.CustomerID != nil {
		opts = append(opts, option.Where("customer_id = ?", *filter.CustomerID))
	}
	if filter.PolicyID != nil {
		opts = append(opts, option.Where("policy_id = ?", *filter.PolicyID))
	}
	if filter.InsurerID != nil {
		opts = append(opts, option.Where("insurer_id = ?", *filter.InsurerID))
	}
	opts = append(opts, option.Equal("status", string(filter.Status)))
	return r.store.List(ctx, db, page, opts...)
}

func (r *repo) PolicyNumberTaken(ctx context.Context, db *gorm.DB, number string, excludeID snowflake.ID) (bool, error) {
	return r.store.Exists(ctx, db,
		option.Where("policy_number = ?", number),
		option.ExcludeID(int64(excludeID)),
	)
}

func (r *repo) HasDependents(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	paid, err := r.payments.Exists(ctx, db, option.Where("customer_policy_id = ?", id))
	if err != nil || paid {
		return paid, err
	}
	return r.claims.Exists(ctx, db, option.Where("customer_policy_id = ?", id))
}

func (r *repo) ListActiveAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*domain.CustomerPolicy, error) {
	var out []*domain.CustomerPolicy
	err := db.WithContext(ctx).
		Where("status = ? AND id > ?", domain.StatusActive, afterID).
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) UpdateDueDate(ctx context.Context, db *gorm.DB, id snowflake.ID, due *time.Time, updatedBy string, at time.Time) error {
	_, err := r.store.Updates(ctx, db, id, map[string]any{
		"next_premium_due_date": due,
		"updated_by":            updatedBy,
		"updated_at":            at,
	})
	return err
}
