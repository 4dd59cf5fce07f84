package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/claim/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Claim]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return r.store.Insert(ctx, db, claim)
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return r.store.Save(ctx, db, claim)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error) {
	return r.store.Delete(ctx, db, id, opts...)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.Claim, error) {
	return r.store.FindByID(ctx, db, id, opts...)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*domain.Claim, int64, error) {
	opts = append(opts, option.Search(filter.Search, "claim_number", "notes"))
	if filter.CustomerPolicyID != nil {
		opts = append(opts, option.Where("customer_policy_id = ?", *filter.CustomerPolicyID))
	}
	opts = append(opts, option.Equal("status", string(filter.Status)))
	return r.store.List(ctx, db, page, opts...)
}

func (r *repo) ClaimNumberTaken(ctx context.Context, db *gorm.DB, number string, excludeID snowflake.ID) (bool, error) {
	return r.store.Exists(ctx, db,
		option.Where("claim_number = ?", number),
		option.ExcludeID(int64(excludeID)),
	)
}
