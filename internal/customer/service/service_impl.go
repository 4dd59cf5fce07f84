package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/customer/domain"
	"github.com/smallbiznis/tutorbase/internal/ids"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   *config.InsuranceConfigHolder
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      *config.InsuranceConfigHolder
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Customer{}, access.ErrUnauthenticated
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectCustomer,
		EntityID:   customer.ID.String(),
		Summary:    fmt.Sprintf("Created customer %s", customer.Name),
		After:      customer,
	})
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Customer, error) {
	id, vErr := ids.Parse("id", rawID)
	if vErr != nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	item, err := s.repo.FindByID(ctx, s.db, id, access.Owned(ctx))
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{Search: req.Search}, page, access.Owned(ctx))
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return domain.ListCustomerResponse{
		Customers: customers,
		Meta:      pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) Exists(ctx context.Context, id snowflake.ID) (bool, error) {
	item, err := s.repo.FindByID(ctx, s.db, id, option.Func(func(db *gorm.DB) *gorm.DB {
		return db.Select("id")
	}))
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

func (s *Service) Summaries(ctx context.Context, list []snowflake.ID) (map[snowflake.ID]domain.Summary, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, list)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Summary, len(items))
	for id, item := range repository.Index(items, func(c *domain.Customer) snowflake.ID { return c.ID }) {
		out[id] = item.Summary()
	}
	return out, nil
}
