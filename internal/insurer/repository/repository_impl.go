package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/insurer/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store    repository.Store[domain.Insurer]
	policies repository.Store[policydomain.Policy]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, insurer *domain.Insurer) error {
	return r.store.Insert(ctx, db, insurer)
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, insurer *domain.Insurer) error {
	return r.store.Save(ctx, db, insurer)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (int64, error) {
	return r.store.Delete(ctx, db, id, opts...)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.Insurer, error) {
	return r.store.FindByID(ctx, db, id, opts...)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string, opts ...option.QueryOption) (*domain.Insurer, error) {
	return r.store.FindOne(ctx, db, append([]option.QueryOption{option.Where("code = ?", code)}, opts...)...)
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Insurer, error) {
	return r.store.FindByIDs(ctx, db, ids)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page, opts ...option.QueryOption) ([]*domain.Insurer, int64, error) {
	opts = append(opts, option.Search(filter.Search, "name", "code", "contact_person", "email", "phone"))
	if filter.ActiveOnly {
		opts = append(opts, option.Where("is_active = ?", true))
	}
	return r.store.List(ctx, db, page, opts...)
}

func (r *repo) NameTaken(ctx context.Context, db *gorm.DB, name string, excludeID snowflake.ID) (bool, error) {
	return r.store.Exists(ctx, db,
		option.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))),
		option.ExcludeID(int64(excludeID)),
	)
}

func (r *repo) CodeTaken(ctx context.Context, db *gorm.DB, code string, excludeID snowflake.ID) (bool, error) {
	return r.store.Exists(ctx, db,
		option.Where("code = ?", code),
		option.ExcludeID(int64(excludeID)),
	)
}

func (r *repo) HasPolicies(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return r.policies.Exists(ctx, db, option.Where("insurer_id = ?", id))
}
