package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	"github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/dates"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/identifier"
	"github.com/smallbiznis/tutorbase/internal/ids"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	"github.com/smallbiznis/tutorbase/internal/observability/logger"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/smallbiznis/tutorbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      *config.InsuranceConfigHolder
	Repo        domain.Repository
	Identifiers *identifier.Factory
	CustomerSvc customerdomain.Service
	PolicySvc   policydomain.Service
	InsurerSvc  insurerdomain.Service
	AuditSvc    auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         *config.InsuranceConfigHolder
	repo        domain.Repository
	numbers     *identifier.Generator
	customerSvc customerdomain.Service
	policySvc   policydomain.Service
	insurerSvc  insurerdomain.Service
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("customerpolicy.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		repo:        p.Repo,
		numbers:     p.Identifiers.For("customer_policies", "policy_number"),
		customerSvc: p.CustomerSvc,
		policySvc:   p.PolicySvc,
		insurerSvc:  p.InsurerSvc,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerPolicyRequest) (domain.View, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.View{}, access.ErrUnauthenticated
	}

	customerID, customerErr := ids.Parse("customerId", req.CustomerID)
	policyID, policyErr := ids.Parse("policyId", req.PolicyID)
	insurerID, insurerErr := ids.ParseOptional("insurerId", req.InsurerID)
	insuredID, insuredErr := ids.ParseOptional("insuredPersonId", req.InsuredPersonID)
	startDate, startErr := dates.Parse("startDate", req.StartDate)
	dueDate, dueErr := dates.ParseOptional("nextPremiumDueDate", req.NextPremiumDueDate)

	status := req.Status
	if status == "" {
		status = domain.StatusActive
	}
	var statusErr *errs.ValidationError
	if !status.Valid() {
		statusErr = domain.ErrInvalidStatus
	}

	var number string
	var numberErr *errs.ValidationError
	if req.PolicyNumber != nil {
		number = strings.TrimSpace(*req.PolicyNumber)
		if number == "" {
			numberErr = domain.ErrInvalidPolicyNumber
		}
	}

	if err := errs.Merge(customerErr, policyErr, insurerErr, insuredErr, startErr, dueErr, statusErr, numberErr); err != nil {
		return domain.View{}, err
	}

	exists, err := s.customerSvc.Exists(ctx, customerID)
	if err != nil {
		return domain.View{}, err
	}
	if !exists {
		return domain.View{}, domain.ErrInvalidCustomer
	}

	policy, insurer, err := s.resolveCatalog(ctx, policyID, insurerID)
	if err != nil {
		return domain.View{}, err
	}

	if dueDate == nil {
		dueDate = policydomain.AddInterval(startDate, policy.PremiumFrequency)
	}

	now := s.clock.Now()
	binding := domain.CustomerPolicy{
		ID:                 s.genID.Generate(),
		CustomerID:         customerID,
		PolicyID:           policy.ID,
		InsurerID:          policy.InsurerID,
		PolicyNumber:       number,
		Status:             status,
		StartDate:          startDate,
		NextPremiumDueDate: dueDate,
		InsuredPersonID:    insuredID,
		CreatedBy:          actor.ID,
		UpdatedBy:          actor.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if number != "" {
		taken, err := s.repo.PolicyNumberTaken(ctx, s.db, number, 0)
		if err != nil {
			return domain.View{}, err
		}
		if taken {
			return domain.View{}, domain.ErrPolicyNumberTaken
		}
		if err := s.repo.Insert(ctx, s.db, &binding); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.View{}, domain.ErrPolicyNumberTaken
			}
			return domain.View{}, err
		}
	} else {
		bucket := identifier.PolicyNumberBucket(identifier.InsurerCode(insurer.CodeValue(), insurer.Name), startDate)
		_, err := s.numbers.Allocate(ctx, identifier.PrefixPolicyNumber, bucket, 0, func(id string) error {
			binding.PolicyNumber = id
			return s.repo.Insert(ctx, s.db, &binding)
		})
		if err != nil {
			return domain.View{}, err
		}
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectCustomerPolicy,
		EntityID:   binding.ID.String(),
		Summary:    fmt.Sprintf("Bound policy %s as %s", policy.Name, binding.PolicyNumber),
		After:      binding,
	})

	views, err := s.enrich(ctx, []*domain.CustomerPolicy{&binding})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateCustomerPolicyRequest) (domain.View, error) {
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

	var policyErr, insurerErr, numberErr, statusErr, startErr, dueErr, insuredErr *errs.ValidationError
	var requestedInsurer *snowflake.ID
	if req.PolicyID != nil {
		next.PolicyID, policyErr = ids.Parse("policyId", *req.PolicyID)
	}
	if req.InsurerID != nil {
		requestedInsurer, insurerErr = ids.ParseOptional("insurerId", req.InsurerID)
	}
	if req.PolicyNumber != nil {
		next.PolicyNumber = strings.TrimSpace(*req.PolicyNumber)
		if next.PolicyNumber == "" {
			numberErr = domain.ErrInvalidPolicyNumber
		}
	}
	if req.Status != nil {
		next.Status = *req.Status
		if !next.Status.Valid() {
			statusErr = domain.ErrInvalidStatus
		}
	}
	if req.StartDate != nil {
		next.StartDate, startErr = dates.Parse("startDate", *req.StartDate)
	}
	if req.NextPremiumDueDate != nil {
		next.NextPremiumDueDate, dueErr = dates.ParseOptional("nextPremiumDueDate", req.NextPremiumDueDate)
	}
	if req.InsuredPersonID != nil {
		next.InsuredPersonID, insuredErr = ids.ParseOptional("insuredPersonId", req.InsuredPersonID)
	}
	if err := errs.Merge(policyErr, insurerErr, numberErr, statusErr, startErr, dueErr, insuredErr); err != nil {
		return domain.View{}, err
	}

	policyChanged := next.PolicyID != before.PolicyID
	insurerChanged := requestedInsurer != nil && *requestedInsurer != before.InsurerID
	if policyChanged || insurerChanged {
		policy, _, err := s.resolveCatalog(ctx, next.PolicyID, requestedInsurer)
		if err != nil {
			return domain.View{}, err
		}
		next.InsurerID = policy.InsurerID
	}

	if next.PolicyNumber != before.PolicyNumber {
		taken, err := s.repo.PolicyNumberTaken(ctx, s.db, next.PolicyNumber, next.ID)
		if err != nil {
			return domain.View{}, err
		}
		if taken {
			return domain.View{}, domain.ErrPolicyNumberTaken
		}
	}

	next.UpdatedBy = actor.ID
	next.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, &next); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.View{}, domain.ErrPolicyNumberTaken
		}
		return domain.View{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: access.ObjectCustomerPolicy,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Updated customer policy %s", next.PolicyNumber),
		Before:     before,
		After:      next,
	})

	views, err := s.enrich(ctx, []*domain.CustomerPolicy{&next})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	if _, ok := actorcontext.FromContext(ctx); !ok {
		return access.ErrUnauthenticated
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return err
	}

	referenced, err := s.repo.HasDependents(ctx, s.db, current.ID)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrHasDependents
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
		EntityType: access.ObjectCustomerPolicy,
		EntityID:   current.ID.String(),
		Summary:    fmt.Sprintf("Deleted customer policy %s", current.PolicyNumber),
		Before:     *current,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.View, error) {
	item, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.View{}, err
	}
	views, err := s.enrich(ctx, []*domain.CustomerPolicy{item})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerPolicyRequest) (domain.ListCustomerPolicyResponse, error) {
	customerID, customerErr := ids.ParseOptional("customerId", &req.CustomerID)
	policyID, policyErr := ids.ParseOptional("policyId", &req.PolicyID)
	insurerID, insurerErr := ids.ParseOptional("insurerId", &req.InsurerID)
	var statusErr *errs.ValidationError
	if req.Status != "" && !req.Status.Valid() {
		statusErr = domain.ErrInvalidStatus
	}
	if err := errs.Merge(customerErr, policyErr, insurerErr, statusErr); err != nil {
		return domain.ListCustomerPolicyResponse{}, err
	}

	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Search:     req.Search,
		CustomerID: customerID,
		PolicyID:   policyID,
		InsurerID:  insurerID,
		Status:     req.Status,
	}, page, access.Owned(ctx))
	if err != nil {
		return domain.ListCustomerPolicyResponse{}, err
	}

	views, err := s.enrich(ctx, items)
	if err != nil {
		return domain.ListCustomerPolicyResponse{}, err
	}
	return domain.ListCustomerPolicyResponse{
		CustomerPolicies: views,
		Meta:             pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) Owned(ctx context.Context, id snowflake.ID) (*domain.CustomerPolicy, error) {
	return s.repo.FindByID(ctx, s.db, id, access.Owned(ctx))
}

func (s *Service) Summaries(ctx context.Context, list []snowflake.ID) (map[snowflake.ID]domain.Summary, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, list)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Summary, len(items))
	for id, item := range repository.Index(items, func(c *domain.CustomerPolicy) snowflake.ID { return c.ID }) {
		out[id] = item.Summary()
	}
	return out, nil
}

func (s *Service) ExpireMatured(ctx context.Context, asOf time.Time, limit int) (int, error) {
	if limit < 1 {
		return 0, nil
	}
	if _, ok := actorcontext.FromContext(ctx); !ok {
		ctx = actorcontext.WithActor(ctx, actorcontext.System)
	}
	actor, _ := actorcontext.FromContext(ctx)
	log := logger.WithContext(ctx, s.log)

	terms := make(map[snowflake.ID]policydomain.Summary)
	expired := 0
	var after snowflake.ID
	for expired < limit {
		batch, err := s.repo.ListActiveAfter(ctx, s.db, after, limit)
		if err != nil {
			return expired, err
		}
		if len(batch) == 0 {
			break
		}
		after = batch[len(batch)-1].ID

		var missing []snowflake.ID
		for _, id := range repository.IDs(batch, func(c *domain.CustomerPolicy) snowflake.ID { return c.PolicyID }) {
			if _, ok := terms[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			found, err := s.policySvc.Summaries(ctx, missing)
			if err != nil {
				return expired, err
			}
			for id, summary := range found {
				terms[id] = summary
			}
		}

		for _, binding := range batch {
			policy, ok := terms[binding.PolicyID]
			if !ok || policy.TermMonths < 1 {
				continue
			}
			maturity := policydomain.AddMonths(binding.StartDate, policy.TermMonths)
			if maturity.After(asOf) {
				continue
			}

			before := *binding
			binding.Status = domain.StatusExpired
			binding.NextPremiumDueDate = nil
			binding.UpdatedBy = actor.ID
			binding.UpdatedAt = s.clock.Now()
			if err := s.repo.Save(ctx, s.db, binding); err != nil {
				return expired, err
			}
			expired++

			_ = s.auditSvc.Record(ctx, auditdomain.Entry{
				Action:     auditdomain.ActionExpire,
				EntityType: access.ObjectCustomerPolicy,
				EntityID:   binding.ID.String(),
				Summary:    fmt.Sprintf("Expired customer policy %s after %d months", binding.PolicyNumber, policy.TermMonths),
				Before:     before,
				After:      *binding,
			})
			if expired >= limit {
				break
			}
		}
	}

	if expired > 0 {
		log.Info("expired matured customer policies",
			zap.Int("count", expired),
			zap.Time("as_of", asOf),
		)
	}
	return expired, nil
}

func (s *Service) findOwned(ctx context.Context, rawID string) (*domain.CustomerPolicy, error) {
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

// resolveCatalog loads the policy and its insurer, both of which must be
// active. A supplied insurer id must match the policy's insurer.
func (s *Service) resolveCatalog(ctx context.Context, policyID snowflake.ID, insurerID *snowflake.ID) (*policydomain.Policy, *insurerdomain.Insurer, error) {
	policy, err := s.policySvc.Lookup(ctx, policyID)
	if err != nil {
		return nil, nil, err
	}
	if policy == nil {
		return nil, nil, domain.ErrInvalidPolicy
	}
	if insurerID != nil && *insurerID != policy.InsurerID {
		return nil, nil, domain.ErrInsurerMismatch
	}
	if !policy.Active {
		return nil, nil, policydomain.ErrInactive
	}

	insurer, err := s.insurerSvc.Lookup(ctx, policy.InsurerID)
	if err != nil {
		return nil, nil, err
	}
	if insurer == nil {
		return nil, nil, insurerdomain.ErrNotFound
	}
	if !insurer.IsActive {
		return nil, nil, insurerdomain.ErrInactive
	}
	return policy, insurer, nil
}

// enrich attaches policy, insurer and customer projections with one batch
// lookup per collection.
func (s *Service) enrich(ctx context.Context, items []*domain.CustomerPolicy) ([]domain.View, error) {
	policies, err := s.policySvc.Summaries(ctx, repository.IDs(items, func(c *domain.CustomerPolicy) snowflake.ID { return c.PolicyID }))
	if err != nil {
		return nil, err
	}
	insurers, err := s.insurerSvc.Summaries(ctx, repository.IDs(items, func(c *domain.CustomerPolicy) snowflake.ID { return c.InsurerID }))
	if err != nil {
		return nil, err
	}
	customers, err := s.customerSvc.Summaries(ctx, repository.IDs(items, func(c *domain.CustomerPolicy) snowflake.ID { return c.CustomerID }))
	if err != nil {
		return nil, err
	}

	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		view := domain.View{CustomerPolicy: *item}
		if p, ok := policies[item.PolicyID]; ok {
			view.Policy = &p
		}
		if i, ok := insurers[item.InsurerID]; ok {
			view.Insurer = &i
		}
		if c, ok := customers[item.CustomerID]; ok {
			view.Customer = &c
		}
		views = append(views, view)
	}
	return views, nil
}
