package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/ids"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	"github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	codePattern     = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,31}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	App        config.Config
	Config     *config.InsuranceConfigHolder
	Repo       domain.Repository
	InsurerSvc insurerdomain.Service
	AuditSvc   auditdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	defaultCurrency string
	cfg             *config.InsuranceConfigHolder
	repo            domain.Repository
	insurerSvc      insurerdomain.Service
	auditSvc        auditdomain.Service
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.App.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("policy.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		defaultCurrency: currency,
		cfg:             p.Config,
		repo:            p.Repo,
		insurerSvc:      p.InsurerSvc,
		auditSvc:        p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePolicyRequest) (domain.Policy, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Policy{}, access.ErrUnauthenticated
	}

	insurerID, insurerErr := ids.Parse("insurerId", req.InsurerID)

	name := strings.TrimSpace(req.Name)
	var nameErr *errs.ValidationError
	if name == "" {
		nameErr = domain.ErrInvalidName
	}
	code, codeErr := normalizeCode(req.Code)

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	frequency := req.PremiumFrequency
	if frequency == "" {
		frequency = domain.FrequencyMonthly
	}

	termMonths := domain.DefaultTermMonths
	if req.TermMonths != nil {
		termMonths = *req.TermMonths
	}

	policy := domain.Policy{
		ID:               s.genID.Generate(),
		InsurerID:        insurerID,
		Name:             name,
		Code:             code,
		PremiumAmount:    req.PremiumAmount,
		Currency:         currency,
		PremiumFrequency: frequency,
		TermMonths:       termMonths,
		MinCoverAmount:   nullDecimal(req.MinCoverAmount),
		MaxCoverAmount:   nullDecimal(req.MaxCoverAmount),
		Active:           true,
		Description:      strings.TrimSpace(req.Description),
		CoverageDetails:  strings.TrimSpace(req.CoverageDetails),
		CreatedBy:        actor.ID,
		UpdatedBy:        actor.ID,
	}
	if req.Active != nil {
		policy.Active = *req.Active
	}

	if err := errs.Merge(append([]*errs.ValidationError{insurerErr, nameErr, codeErr}, validateTerms(policy)...)...); err != nil {
		return domain.Policy{}, err
	}

	if err := s.requireActiveInsurer(ctx, policy.InsurerID); err != nil {
		return domain.Policy{}, err
	}
	if err := s.ensureUnique(ctx, policy); err != nil {
		return domain.Policy{}, err
	}

	now := s.clock.Now()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	if err := s.repo.Insert(ctx, s.db, &policy); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Policy{}, s.duplicateErr(ctx, policy, err)
		}
		return domain.Policy{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectPolicy,
		EntityID:   policy.ID.String(),
		Summary:    fmt.Sprintf("Created policy %s", policy.Name),
		After:      policy,
	})
	return policy, nil
}

// Update requires the policy's insurer to be active, including when only
// the premium or descriptive fields change.
func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdatePolicyRequest) (domain.Policy, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Policy{}, access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.Policy{}, err
	}
	before := *current
	next := *current

	var insurerErr, nameErr, codeErr *errs.ValidationError
	if req.InsurerID != nil {
		next.InsurerID, insurerErr = ids.Parse("insurerId", *req.InsurerID)
	}
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
		if next.Name == "" {
			nameErr = domain.ErrInvalidName
		}
	}
	if req.Code != nil {
		next.Code, codeErr = normalizeCode(req.Code)
	}
	if req.PremiumAmount != nil {
		next.PremiumAmount = *req.PremiumAmount
	}
	if req.Currency != nil {
		next.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.PremiumFrequency != nil {
		next.PremiumFrequency = *req.PremiumFrequency
	}
	if req.TermMonths != nil {
		next.TermMonths = *req.TermMonths
	}
	if req.MinCoverAmount != nil {
		next.MinCoverAmount = nullDecimal(req.MinCoverAmount)
	}
	if req.MaxCoverAmount != nil {
		next.MaxCoverAmount = nullDecimal(req.MaxCoverAmount)
	}
	if req.Active != nil {
		next.Active = *req.Active
	}
	if req.Description != nil {
		next.Description = strings.TrimSpace(*req.Description)
	}
	if req.CoverageDetails != nil {
		next.CoverageDetails = strings.TrimSpace(*req.CoverageDetails)
	}

	if err := errs.Merge(append([]*errs.ValidationError{insurerErr, nameErr, codeErr}, validateTerms(next)...)...); err != nil {
		return domain.Policy{}, err
	}

	if err := s.requireActiveInsurer(ctx, next.InsurerID); err != nil {
		return domain.Policy{}, err
	}
	if err := s.ensureUnique(ctx, next); err != nil {
		return domain.Policy{}, err
	}

	next.UpdatedBy = actor.ID
	next.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, &next); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Policy{}, s.duplicateErr(ctx, next, err)
		}
		return domain.Policy{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: access.ObjectPolicy,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Updated policy %s", next.Name),
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

	referenced, err := s.repo.HasBindings(ctx, s.db, current.ID)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrHasBindings
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
		EntityType: access.ObjectPolicy,
		EntityID:   current.ID.String(),
		Summary:    fmt.Sprintf("Deleted policy %s", current.Name),
		Before:     *current,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Policy, error) {
	item, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.Policy{}, err
	}
	return *item, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Policy, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Policy{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByCode(ctx, s.db, code, access.Owned(ctx))
	if err != nil {
		return domain.Policy{}, err
	}
	if item == nil {
		return domain.Policy{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPolicyRequest) (domain.ListPolicyResponse, error) {
	filter := domain.ListFilter{
		Search:     req.Search,
		ActiveOnly: req.ActiveOnly,
	}
	if strings.TrimSpace(req.InsurerID) != "" {
		insurerID, vErr := ids.Parse("insurerId", req.InsurerID)
		if vErr != nil {
			return domain.ListPolicyResponse{}, vErr
		}
		filter.InsurerID = &insurerID
	}

	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, filter, page, access.Owned(ctx))
	if err != nil {
		return domain.ListPolicyResponse{}, err
	}

	policies := make([]domain.Policy, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		policies = append(policies, *item)
	}
	return domain.ListPolicyResponse{
		Policies: policies,
		Meta:     pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) Lookup(ctx context.Context, id snowflake.ID) (*domain.Policy, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) Summaries(ctx context.Context, list []snowflake.ID) (map[snowflake.ID]domain.Summary, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, list)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Summary, len(items))
	for id, item := range repository.Index(items, func(p *domain.Policy) snowflake.ID { return p.ID }) {
		out[id] = item.Summary()
	}
	return out, nil
}

func (s *Service) findOwned(ctx context.Context, rawID string) (*domain.Policy, error) {
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

func (s *Service) requireActiveInsurer(ctx context.Context, insurerID snowflake.ID) error {
	insurer, err := s.insurerSvc.Lookup(ctx, insurerID)
	if err != nil {
		return err
	}
	if insurer == nil {
		return domain.ErrInvalidInsurer
	}
	if !insurer.IsActive {
		return insurerdomain.ErrInactive
	}
	return nil
}

// duplicateErr names the column a unique violation collided on, repeating
// the lookups when the driver does not report the constraint.
func (s *Service) duplicateErr(ctx context.Context, policy domain.Policy, cause error) error {
	if db.DuplicateKeyOn(cause, "code") {
		return domain.ErrCodeTaken
	}
	if err := s.ensureUnique(ctx, policy); err != nil {
		return err
	}
	return domain.ErrNameTaken
}

func (s *Service) ensureUnique(ctx context.Context, policy domain.Policy) error {
	taken, err := s.repo.NameTaken(ctx, s.db, policy.InsurerID, policy.Name, policy.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrNameTaken
	}
	if policy.Code == nil {
		return nil
	}
	taken, err = s.repo.CodeTaken(ctx, s.db, *policy.Code, policy.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrCodeTaken
	}
	return nil
}

func validateTerms(p domain.Policy) []*errs.ValidationError {
	var out []*errs.ValidationError
	if !p.PremiumAmount.IsPositive() {
		out = append(out, domain.ErrInvalidPremium)
	}
	if !currencyPattern.MatchString(p.Currency) {
		out = append(out, domain.ErrInvalidCurrency)
	}
	if !p.PremiumFrequency.Valid() {
		out = append(out, domain.ErrInvalidFrequency)
	}
	if p.TermMonths < 1 {
		out = append(out, domain.ErrInvalidTerm)
	}
	if (p.MinCoverAmount.Valid && p.MinCoverAmount.Decimal.IsNegative()) ||
		(p.MaxCoverAmount.Valid && p.MaxCoverAmount.Decimal.IsNegative()) {
		out = append(out, domain.ErrInvalidCover)
	} else if p.MinCoverAmount.Valid && p.MaxCoverAmount.Valid &&
		p.MaxCoverAmount.Decimal.LessThan(p.MinCoverAmount.Decimal) {
		out = append(out, domain.ErrInvalidCoverRange)
	}
	return out
}

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

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
