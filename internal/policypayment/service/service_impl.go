package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/dates"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/identifier"
	"github.com/smallbiznis/tutorbase/internal/ids"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	"github.com/smallbiznis/tutorbase/internal/observability/metrics"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	BindingRepo       customerpolicydomain.Repository
	Identifiers       *identifier.Factory
	CustomerPolicySvc customerpolicydomain.Service
	PolicySvc         policydomain.Service
	InsurerSvc        insurerdomain.Service
	CustomerSvc       customerdomain.Service
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
	bindingRepo       customerpolicydomain.Repository
	transactions      *identifier.Generator
	customerPolicySvc customerpolicydomain.Service
	policySvc         policydomain.Service
	insurerSvc        insurerdomain.Service
	customerSvc       customerdomain.Service
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
		log:               p.Log.Named("policypayment.service"),
		genID:             p.GenID,
		clock:             p.Clock,
		defaultCurrency:   currency,
		cfg:               p.Config,
		repo:              p.Repo,
		bindingRepo:       p.BindingRepo,
		transactions:      p.Identifiers.For("policy_payments", "transaction_id"),
		customerPolicySvc: p.CustomerPolicySvc,
		policySvc:         p.PolicySvc,
		insurerSvc:        p.InsurerSvc,
		customerSvc:       p.CustomerSvc,
		auditSvc:          p.AuditSvc,
		authz:             p.Authz,
		metrics:           p.Metrics,
	}
}

// Create records a premium and, for recurring policies, moves the binding's
// next due date to one interval after the payment date in the same
// transaction.
func (s *Service) Create(ctx context.Context, req domain.CreatePolicyPaymentRequest) (domain.View, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.View{}, access.ErrUnauthenticated
	}

	bindingID, bindingErr := ids.Parse("customerPolicyId", req.CustomerPolicyID)
	payerID, payerErr := ids.ParseOptional("payerId", req.PayerID)

	var amountErr, modeErr *errs.ValidationError
	if !req.Amount.IsPositive() {
		amountErr = domain.ErrInvalidAmount
	}

	paymentDate := startOfDay(s.clock.Now())
	var dateErr *errs.ValidationError
	if strings.TrimSpace(req.PaymentDate) != "" {
		paymentDate, dateErr = dates.Parse("paymentDate", req.PaymentDate)
	}

	mode := req.ModeOfPayment
	if mode == "" {
		mode = domain.ModeCash
	}
	if !mode.Valid() {
		modeErr = domain.ErrInvalidMode
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	var currencyErr *errs.ValidationError
	if currency != "" && !currencyPattern.MatchString(currency) {
		currencyErr = domain.ErrInvalidCurrency
	}

	if err := errs.Merge(bindingErr, payerErr, amountErr, dateErr, modeErr, currencyErr); err != nil {
		return domain.View{}, err
	}

	binding, err := s.customerPolicySvc.Owned(ctx, bindingID)
	if err != nil {
		return domain.View{}, err
	}
	if binding == nil {
		return domain.View{}, customerpolicydomain.ErrNotFound
	}
	if binding.Status.Closed() {
		return domain.View{}, domain.ErrBindingClosed
	}

	policy, err := s.policySvc.Lookup(ctx, binding.PolicyID)
	if err != nil {
		return domain.View{}, err
	}
	if currency == "" && policy != nil {
		currency = policy.Currency
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	var due *time.Time
	if policy != nil && policy.PremiumFrequency.Recurring() {
		due = policydomain.AddInterval(paymentDate, policy.PremiumFrequency)
	}

	now := s.clock.Now()
	payment := domain.PolicyPayment{
		ID:               s.genID.Generate(),
		CustomerPolicyID: binding.ID,
		PayerID:          payerID,
		Amount:           req.Amount,
		Currency:         currency,
		PaymentDate:      paymentDate,
		ModeOfPayment:    mode,
		Reference:        strings.TrimSpace(req.Reference),
		CreatedBy:        actor.ID,
		UpdatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = s.transactions.Allocate(ctx, identifier.PrefixTransaction, identifier.TransactionBucket(paymentDate), 0, func(id string) error {
		payment.TransactionID = id
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.Insert(ctx, tx, &payment); err != nil {
				return err
			}
			if due == nil {
				return nil
			}
			return s.bindingRepo.UpdateDueDate(ctx, tx, binding.ID, due, actor.ID, now)
		})
	})
	if err != nil {
		return domain.View{}, err
	}
	s.metrics.IncPremiumPayment(string(payment.ModeOfPayment))

	details := map[string]any{}
	if due != nil {
		details["nextPremiumDueDate"] = due.Format(dates.Layout)
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		EntityType: access.ObjectPolicyPayment,
		EntityID:   payment.ID.String(),
		Summary:    fmt.Sprintf("Recorded premium %s %s for %s", payment.Amount.StringFixed(2), payment.Currency, binding.PolicyNumber),
		Details:    details,
		After:      payment,
	})

	views, err := s.enrich(ctx, []*domain.PolicyPayment{&payment})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdatePolicyPaymentRequest) (domain.View, error) {
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

	var payerErr, amountErr, currencyErr, dateErr, modeErr *errs.ValidationError
	if req.PayerID != nil {
		next.PayerID, payerErr = ids.ParseOptional("payerId", req.PayerID)
	}
	if req.Amount != nil {
		next.Amount = *req.Amount
		if !next.Amount.IsPositive() {
			amountErr = domain.ErrInvalidAmount
		}
	}
	if req.Currency != nil {
		next.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
		if !currencyPattern.MatchString(next.Currency) {
			currencyErr = domain.ErrInvalidCurrency
		}
	}
	if req.PaymentDate != nil {
		next.PaymentDate, dateErr = dates.Parse("paymentDate", *req.PaymentDate)
	}
	if req.ModeOfPayment != nil {
		next.ModeOfPayment = *req.ModeOfPayment
		if !next.ModeOfPayment.Valid() {
			modeErr = domain.ErrInvalidMode
		}
	}
	if req.Reference != nil {
		next.Reference = strings.TrimSpace(*req.Reference)
	}
	if err := errs.Merge(payerErr, amountErr, currencyErr, dateErr, modeErr); err != nil {
		return domain.View{}, err
	}

	next.UpdatedBy = actor.ID
	next.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, &next); err != nil {
		return domain.View{}, err
	}

	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: access.ObjectPolicyPayment,
		EntityID:   next.ID.String(),
		Summary:    fmt.Sprintf("Updated payment %s", next.TransactionID),
		Before:     before,
		After:      next,
	})

	views, err := s.enrich(ctx, []*domain.PolicyPayment{&next})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

// Delete removes a payment. The binding's due date is left as the payment
// set it.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return access.ErrUnauthenticated
	}
	allowed, err := s.authz.Can(actor, access.ObjectPolicyPayment, access.ActionDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return access.ErrForbidden
	}

	current, err := s.findOwned(ctx, rawID)
	if err != nil {
		return err
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
		EntityType: access.ObjectPolicyPayment,
		EntityID:   current.ID.String(),
		Summary:    fmt.Sprintf("Deleted payment %s", current.TransactionID),
		Before:     *current,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.View, error) {
	item, err := s.findOwned(ctx, rawID)
	if err != nil {
		return domain.View{}, err
	}
	views, err := s.enrich(ctx, []*domain.PolicyPayment{item})
	if err != nil {
		return domain.View{}, err
	}
	return views[0], nil
}

func (s *Service) List(ctx context.Context, req domain.ListPolicyPaymentRequest) (domain.ListPolicyPaymentResponse, error) {
	bindingID, bindingErr := ids.ParseOptional("customerPolicyId", &req.CustomerPolicyID)
	from, fromErr := dates.ParseOptional("from", &req.From)
	to, toErr := dates.ParseOptional("to", &req.To)
	var modeErr, rangeErr *errs.ValidationError
	if req.ModeOfPayment != "" && !req.ModeOfPayment.Valid() {
		modeErr = domain.ErrInvalidMode
	}
	if from != nil && to != nil && to.Before(*from) {
		rangeErr = domain.ErrInvalidDateRange
	}
	if err := errs.Merge(bindingErr, fromErr, toErr, modeErr, rangeErr); err != nil {
		return domain.ListPolicyPaymentResponse{}, err
	}

	filter := domain.ListFilter{
		CustomerPolicyID: bindingID,
		Mode:             req.ModeOfPayment,
		From:             from,
	}
	if to != nil {
		// the upper bound is inclusive of the whole day
		end := startOfDay(*to).AddDate(0, 0, 1)
		filter.To = &end
	}

	limits := s.cfg.Get().Pagination
	page := req.Page.Normalize(limits.DefaultPageSize, limits.MaxPageSize)

	items, total, err := s.repo.List(ctx, s.db, filter, page, access.Owned(ctx))
	if err != nil {
		return domain.ListPolicyPaymentResponse{}, err
	}

	views, err := s.enrich(ctx, items)
	if err != nil {
		return domain.ListPolicyPaymentResponse{}, err
	}
	return domain.ListPolicyPaymentResponse{
		PolicyPayments: views,
		Meta:           pagination.NewMeta(page, total),
	}, nil
}

func (s *Service) findOwned(ctx context.Context, rawID string) (*domain.PolicyPayment, error) {
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

// enrich walks payment -> binding -> policy, insurer and customer with one
// batch lookup per collection.
func (s *Service) enrich(ctx context.Context, items []*domain.PolicyPayment) ([]domain.View, error) {
	bindingIDs := uniqueIDs(len(items), func(add func(snowflake.ID)) {
		for _, item := range items {
			if item != nil {
				add(item.CustomerPolicyID)
			}
		}
	})
	bindings, err := s.customerPolicySvc.Summaries(ctx, bindingIDs)
	if err != nil {
		return nil, err
	}

	policyIDs := uniqueIDs(len(bindings), func(add func(snowflake.ID)) {
		for _, b := range bindings {
			add(b.PolicyID)
		}
	})
	insurerIDs := uniqueIDs(len(bindings), func(add func(snowflake.ID)) {
		for _, b := range bindings {
			add(b.InsurerID)
		}
	})
	customerIDs := uniqueIDs(len(bindings), func(add func(snowflake.ID)) {
		for _, b := range bindings {
			add(b.CustomerID)
		}
	})

	policies, err := s.policySvc.Summaries(ctx, policyIDs)
	if err != nil {
		return nil, err
	}
	insurers, err := s.insurerSvc.Summaries(ctx, insurerIDs)
	if err != nil {
		return nil, err
	}
	customers, err := s.customerSvc.Summaries(ctx, customerIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		view := domain.View{PolicyPayment: *item}
		if b, ok := bindings[item.CustomerPolicyID]; ok {
			view.CustomerPolicy = &b
			if p, ok := policies[b.PolicyID]; ok {
				view.Policy = &p
			}
			if i, ok := insurers[b.InsurerID]; ok {
				view.Insurer = &i
			}
			if c, ok := customers[b.CustomerID]; ok {
				view.Customer = &c
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func uniqueIDs(capacity int, collect func(add func(snowflake.ID))) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, capacity)
	out := make([]snowflake.ID, 0, capacity)
	collect(func(id snowflake.ID) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	})
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
