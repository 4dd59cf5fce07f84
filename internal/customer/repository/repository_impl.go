package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/customer/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Customer]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return r.store.Insert(ctx, db, customer)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.Customer, error) {
	return r.store.FindByID(ctx, db, id, opts...)
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Customer, error) {
	return r.store.FindByIDs(ctx, db, ids)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*domain.Customer, int64, error) {
	opts = append(opts, option.Search(filter.Search, "name", "email", "phone"))
	return r.store.List(ctx, db, page, opts...)
}
