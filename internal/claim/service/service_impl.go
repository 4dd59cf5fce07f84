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
	"github.com/smallbiznis/tutorbase/internal/claim/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/dates"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/identifier"
	"github.com/smallbiznis/tutorbase/internal/ids"
	"github.com/smallbiznis/tutorbase/internal/observability/metrics"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Params struct {
	fx.In

	DB                *gorm.DB
	Log               *zap.Logger
	GenID             *snowflake.Node
	Clock             clock.Clock
	App               config.Config
	Config            *config.InsuranceConfigHolder
	Repo              domain.Repository
	Identifiers       *identifier.Factory
	CustomerPolicySvc customerpolicydomain.Service
	PolicySvc         policydomain.Service
	AuditSvc          auditdomain.Service
	Authz             access.Authorizer
	Metrics           *metrics.Metrics `optional:"true"`
}

type Service struct {
	db                *gorm.DB
	log               *zap.Logger
	genID             *snowflake.Node
	clock             clock.Clock
	defaultCurrency   string
	cfg               *config.InsuranceConfigHolder
	repo              domain.Repository
	numbers           *identifier.Generator
	customerPolicySvc customerpolicydomain.Service
	policySvc         policydomain.Service
	auditSvc          auditdomain.Service
	authz             access.Authorizer
	metrics           *metrics.Metrics
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.App.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:                p.DB,
		log:               p.Log.Named("claim.service"),
		genID:             p.GenID,
		clock:             p.Clock,
		defaultCurrency:   currency,
		cfg:               p.Config,
		repo:              p.Repo,
		numbers:           p.Identifiers.For("claims", "claim_number"),
		customerPolicySvc: p.CustomerPolicySvc,
		policySvc:         p.PolicySvc,
		auditSvc:          p.AuditSvc,
		authz:             p.Authz,
		metrics:           p.Metrics,
	}
}

// Create files a claim against an active binding. The acting user is
// required and becomes the claimant unless one is given.
func (s *Service) Create(ctx context.Context, req domain.CreateClaimRequest) (domain.View, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.View{}, access.ErrUnauthenticated
	}

	bindingID, bindingErr := ids.Parse("customerPolicyId", req.CustomerPolicyID)
	eventDate, eventErr := dates.ParseOptional("dateOfEvent", req.DateOfEvent)

	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	var statusErr, amountErr, currencyErr *errs.ValidationError
	if status != domain.StatusDraft && status != domain.StatusSubmitted {
		statusErr = domain.ErrInvalidStatus
	}

	amount := decimal.Zero
	if req.AmountClaimed != nil {
		amount = *req.AmountClaimed
	}
	if amount.IsNegative() {
		amountErr = domain.ErrInvalidAmountClaimed
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != "" && !currencyPattern.MatchString(currency) {
		currencyErr = domain.ErrInvalidCurrency
	}

	if err := errs.Merge(bindingErr, eventErr, statusErr, amountErr, currencyErr); err != nil {
		return domain.View{}, err
	}

	binding, err := s.customerPolicySvc.Owned(ctx, bindingID)
	if err != nil {
		return domain.View{}, err
	}
	if binding == nil {
		return domain.View{}, customerpolicydomain.ErrNotFound
	}
	if binding.Status != customerpolicydomain.StatusActive {
		return domain.View{}, domain.ErrBindingNotActive
	}

	if currency == "" {
		policy, err := s.policySvc.Lookup(ctx, binding.PolicyID)
		if err != nil {
			return domain.View{}, err
		}
		if policy != nil {
			currency = policy.Currency
		}
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	claimant := actor.ID
	if req.ClaimantID != nil && strings.TrimSpace(*req.ClaimantID) != "" {
		claimant = strings.TrimSpace(*req.ClaimantID)
	}

	now := s.clock.Now()
	claim := domain.Claim{
		ID:               s.genID.Generate(),
		CustomerPolicyID: binding.ID,
		DateOfEvent:      eventDate,
		AmountClaimed:    amount,
		Currency:         currency,
		Status:           status,
		ClaimantID:       claimant,
		Notes:            strings.TrimSpace(req.Notes),
		SupportingDocs:   cleanDocs(req.SupportingDocs),
		CreatedBy:        actor.ID,
		UpdatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = s.numbers.Allocate(ctx, identifier.PrefixClaim, identifier.ClaimBucket(now), 0, func(id string) error {
		claim.ClaimNumber = id
		return s.repo.Insert(ctx, s.db, &claim)
	})
	if err != nil {
		return domain.View{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectClaim,
		EntityID:   claim.ID.String(),
		Summary:    fmt.Sprintf("Filed claim %s against %s", claim.ClaimNumber, binding.PolicyNumber),
		After:      claim,
	})
	return s.view(ctx, &claim)
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateClaimRequest) (domain.View, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.View{}, access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.View{}, err
	}
	before := *current
	next := *current

	var numberErr, eventErr, amountErr *errs.ValidationError
	if req.ClaimNumber != nil {
		next.ClaimNumber = strings.ToUpper(strings.TrimSpace(*req.ClaimNumber))
		if next.ClaimNumber == "" {
			numberErr = domain.ErrInvalidClaimNumber
		}
	}
	if req.DateOfEvent != nil {
		next.DateOfEvent, eventErr = dates.ParseOptional("dateOfEvent", req.DateOfEvent)
	}
	if req.AmountClaimed != nil {
		next.AmountClaimed = *req.AmountClaimed
		if next.AmountClaimed.IsNegative() {
			amountErr = domain.ErrInvalidAmountClaimed
		}
	}
	if req.AmountApproved != nil {
		next.AmountApproved = decimal.NewNullDecimal(*req.AmountApproved)
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.SupportingDocs != nil {
		next.SupportingDocs = cleanDocs(*req.SupportingDocs)
	}
	if err := errs.Merge(numberErr, eventErr, amountErr, approvedErr(next)); err != nil {
		return domain.View{}, err
	}

	if req.Status != nil && *req.Status != next.Status {
		if err := moveTo(&next, *req.Status, actor); err != nil {
			return domain.View{}, err
		}
	}

	if next.ClaimNumber != before.ClaimNumber {
		taken, err := s.repo.ClaimNumberTaken(ctx, s.db, next.ClaimNumber, next.ID)
		if err != nil {
			return domain.View{}, err
		}
		if taken {
			return domain.View{}, domain.ErrClaimNumberTaken
		}
	}

	if err := s.save(ctx, &next, actor); err != nil {
		return domain.View{}, err
	}
	if next.Status != before.Status {
		s.metrics.IncClaimTransition(string(before.Status), string(next.Status))
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: access.ObjectClaim,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Updated claim %s", next.ClaimNumber),
		Before:     before,
		After:      next,
	})
	return s.view(ctx, &next)
}

// Transition moves a claim through the workflow, optionally recording the
// approved amount alongside the move.
func (s *Service) Transition(ctx context.Context, rawID string, req domain.TransitionRequest) (domain.View, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.View{}, access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.View{}, err
	}
	before := *current
	next := *current

	if req.AmountApproved != nil {
		next.AmountApproved = decimal.NewNullDecimal(*req.AmountApproved)
		if err := errs.Merge(approvedErr(next)); err != nil {
			return domain.View{}, err
		}
	}
	if err := moveTo(&next, req.Status, actor); err != nil {
		return domain.View{}, err
	}

	if err := s.save(ctx, &next, actor); err != nil {
		return domain.View{}, err
	}
	s.metrics.IncClaimTransition(string(before.Status), string(next.Status))

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionTransition,
		EntityType: access.ObjectClaim,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Moved claim %s from %s to %s", next.ClaimNumber, before.Status, next.Status),
		Before:     before,
		After:      next,
	})
	return s.view(ctx, &next)
}

// Delete removes a draft claim. The actor needs claim delete through
// their role or a direct grant.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return access.ErrUnauthenticated
	}
	allowed, err := s.authz.Can(actor, access.ObjectClaim, access.ActionDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrDeleteForbidden
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return err
	}
	if current.Status != domain.StatusDraft {
		return domain.ErrDeleteForbidden
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
		EntityType: access.ObjectClaim,
		EntityID:   current.ID.String(),
		Summary:    fmt.Sprintf("Deleted claim %s", current.ClaimNumber),
		Before:     *current,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.View, error) {
	item, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.View{}, err
	}
	return s.view(ctx, item)
}

func (s *Service) List(ctx context.Context, req domain.ListClaimRequest) (domain.ListClaimResponse, error) {
	bindingID, bindingErr := ids.ParseOptional("customerPolicyId", &req.CustomerPolicyID)
	var statusErr *errs.ValidationError
	if req.Status != "" && !req.Status.Valid() {
		statusErr = errs.Invalid("status", "invalid_status", "status must be one of "+statusList())
	}
	if err := errs.Merge(bindingErr, statusErr); err != nil {
		return domain.ListClaimResponse{}, err
	}

	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Search:           req.Search,
		CustomerPolicyID: bindingID,
		Status:           req.Status,
	}, page, access.Owned(ctx))
	if err != nil {
		return domain.ListClaimResponse{}, err
	}

	views, err := s.enrich(ctx, items)
	if err != nil {
		return domain.ListClaimResponse{}, err
	}
	return domain.ListClaimResponse{
		Claims: views,
		Meta:   pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) save(ctx context.Context, claim *domain.Claim, actor actorcontext.Actor) error {
	claim.UpdatedBy = actor.ID
	claim.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, claim); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrClaimNumberTaken
		}
		return err
	}
	return nil
}

func (s *Service) findOwned(ctx context.Context, rawID string) (*domain.Claim, error) {
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

func (s *Service) view(ctx context.Context, claim *domain.Claim) (domain.View, error) {
	views, err := s.enrich(ctx, []*domain.Claim{claim})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) enrich(ctx context.Context, items []*domain.Claim) ([]domain.View, error) {
	bindings, err := s.customerPolicySvc.Summaries(ctx, repository.IDs(items, func(c *domain.Claim) snowflake.ID { return c.CustomerPolicyID }))
	if err != nil {
		return nil, err
	}
	policyIDs := make([]snowflake.ID, 0, len(bindings))
	seen := make(map[snowflake.ID]struct{}, len(bindings))
	for _, b := range bindings {
		if _, ok := seen[b.PolicyID]; ok {
			continue
		}
		seen[b.PolicyID] = struct{}{}
		policyIDs = append(policyIDs, b.PolicyID)
	}
	policies, err := s.policySvc.Summaries(ctx, policyIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		view := domain.View{
			Claim:              *item,
			AllowedTransitions: item.Status.Next(),
			Final:              item.Status.Terminal(),
		}
		if b, ok := bindings[item.CustomerPolicyID]; ok {
			view.CustomerPolicy = &b
			if p, ok := policies[b.PolicyID]; ok {
				view.Policy = &p
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func statusList() string {
	names := make([]string, 0, len(domain.Statuses))
	for _, status := range domain.Statuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

// moveTo applies a workflow move and stamps the handler where required.
func moveTo(claim *domain.Claim, to domain.Status, actor actorcontext.Actor) error {
	if err := domain.Transition(claim.Status, to); err != nil {
		return err
	}
	claim.Status = to
	if to.Handled() {
		handler := actor.ID
		claim.HandledBy = &handler
	}
	return nil
}

func approvedErr(claim domain.Claim) *errs.ValidationError {
	if !claim.AmountApproved.Valid {
		return nil
	}
	approved := claim.AmountApproved.Decimal
	if approved.IsNegative() || approved.GreaterThan(claim.AmountClaimed) {
		return domain.ErrInvalidAmountApproved
	}
	return nil
}

func cleanDocs(docs []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(docs))
	for _, doc := range docs {
		if doc = strings.TrimSpace(doc); doc != "" {
			out = append(out, doc)
		}
	}
	return out
}
