package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/ids"
	"github.com/smallbiznis/tutorbase/internal/insurer/domain"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

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
		log:      p.Log.Named("insurer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInsurerRequest) (domain.Insurer, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Insurer{}, access.ErrUnauthenticated
	}

	name := strings.TrimSpace(req.Name)
	code, codeErr := normalizeCode(req.Code)
	var nameErr, emailErr *errs.ValidationError
	if name == "" {
		nameErr = domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		emailErr = domain.ErrInvalidEmail
	}
	if err := errs.Merge(nameErr, codeErr, emailErr); err != nil {
		return domain.Insurer{}, err
	}

	if err := s.ensureUnique(ctx, name, code, 0); err != nil {
		return domain.Insurer{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.clock.Now()
	insurer := domain.Insurer{
		ID:            s.genID.Generate(),
		Name:          name,
		Code:          code,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         email,
		Address:       strings.TrimSpace(req.Address),
		IsActive:      isActive,
		CreatedBy:     actor.ID,
		UpdatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &insurer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Insurer{}, s.duplicateErr(ctx, insurer, err)
		}
		return domain.Insurer{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectInsurer,
		EntityID:   insurer.ID.String(),
		Summary:    fmt.Sprintf("Created insurer %s", insurer.Name),
		After:      insurer,
	})
	return insurer, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateInsurerRequest) (domain.Insurer, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Insurer{}, access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.Insurer{}, err
	}
	before := *current
	next := *current

	var nameErr, codeErr, emailErr *errs.ValidationError
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
		if next.Name == "" {
			nameErr = domain.ErrInvalidName
		}
	}
	if req.Code != nil {
		next.Code, codeErr = normalizeCode(req.Code)
	}
	if req.Email != nil {
		next.Email = strings.TrimSpace(*req.Email)
		if next.Email != "" && !strings.Contains(next.Email, "@") {
			emailErr = domain.ErrInvalidEmail
		}
	}
	if err := errs.Merge(nameErr, codeErr, emailErr); err != nil {
		return domain.Insurer{}, err
	}
	if req.ContactPerson != nil {
		next.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	if req.Phone != nil {
		next.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		next.Address = strings.TrimSpace(*req.Address)
	}
	if req.IsActive != nil {
		next.IsActive = *req.IsActive
	}

	if err := s.ensureUnique(ctx, next.Name, next.Code, next.ID); err != nil {
		return domain.Insurer{}, err
	}

	next.UpdatedBy = actor.ID
	next.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, &next); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Insurer{}, s.duplicateErr(ctx, next, err)
		}
		return domain.Insurer{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: access.ObjectInsurer,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Updated insurer %s", next.Name),
		Before:     before,
		After:      next,
	})
	return next, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	if _, ok := actorcontext.FromContext(ctx); !ok {
		return access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return err
	}

	referenced, err := s.repo.HasPolicies(ctx, s.db, current.ID)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrHasPolicies
	}

	rows, err := s.repo.Delete(ctx, s.db, current.ID, access.Owned(ctx))
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDelete,
		EntityType: access.ObjectInsurer,
		EntityID:   current.ID.String(),
		Summary:    fmt.Sprintf("Deleted insurer %s", current.Name),
		Before:     *current,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Insurer, error) {
	item, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.Insurer{}, err
	}
	return *item, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Insurer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Insurer{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByCode(ctx, s.db, code, access.Owned(ctx))
	if err != nil {
		return domain.Insurer{}, err
	}
	if item == nil {
		return domain.Insurer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInsurerRequest) (domain.ListInsurerResponse, error) {
	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Search:     req.Search,
		ActiveOnly: req.ActiveOnly,
	}, page, access.Owned(ctx))
	if err != nil {
		return domain.ListInsurerResponse{}, err
	}

	insurers := make([]domain.Insurer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		insurers = append(insurers, *item)
	}
	return domain.ListInsurerResponse{
		Insurers: insurers,
		Meta:     pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) Lookup(ctx context.Context, id snowflake.ID) (*domain.Insurer, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) Summaries(ctx context.Context, list []snowflake.ID) (map[snowflake.ID]domain.Summary, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, list)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Summary, len(items))
	for id, item := range repository.Index(items, func(i *domain.Insurer) snowflake.ID { return i.ID }) {
		out[id] = item.Summary()
	}
	return out, nil
}

func (s *Service) findOwned(ctx context.Context, rawID string) (*domain.Insurer, error) {
	id, vErr := ids.Parse("id", rawID)
	if vErr != nil {
		return nil, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.db, id, access.Owned(ctx))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) ensureUnique(ctx context.Context, name string, code *string, excludeID snowflake.ID) error {
	taken, err := s.repo.NameTaken(ctx, s.db, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrNameTaken
	}
	if code == nil {
		return nil
	}
	taken, err = s.repo.CodeTaken(ctx, s.db, *code, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrCodeTaken
	}
	return nil
}

// duplicateErr names the column a unique violation collided on. The
// lookups are repeated because a concurrent writer may have claimed the
// name or code after ensureUnique ran.
func (s *Service) duplicateErr(ctx context.Context, insurer domain.Insurer, cause error) error {
	if db.DuplicateKeyOn(cause, "code") {
		return domain.ErrCodeTaken
	}
	if err := s.ensureUnique(ctx, insurer.Name, insurer.Code, insurer.ID); err != nil {
		return err
	}
	return domain.ErrNameTaken
}

// normalizeCode upper-cases the code; an empty code clears it.
func normalizeCode(raw *string) (*string, *errs.ValidationError) {
	if raw == nil {
		return nil, nil
	}
	code := strings.ToUpper(strings.TrimSpace(*raw))
	if code == "" {
		return nil, nil
	}
	if !codePattern.MatchString(code) {
		return nil, domain.ErrInvalidCode
	}
	return &code, nil
}
