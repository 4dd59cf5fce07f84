package access

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrForbidden       = errs.New(errs.ErrForbidden, "forbidden")
	ErrUnauthenticated = errs.New(errs.ErrUnauthenticated, "unauthenticated")
	ErrInvalidGrant    = errs.New(errs.ErrValidation, "invalid_grant")
)

// Authorizer checks role capabilities for the actor carried in a context.
type Authorizer interface {
	Authorize(ctx context.Context, object, action string) error
	Can(actor actorcontext.Actor, object, action string) (bool, error)
	Grant(userID, object, action string) error
	Revoke(userID, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type Service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewService(p Params) Authorizer {
	return &Service{
		log:      p.Log.Named("access.service"),
		enforcer: p.Enforcer,
	}
}

func (s *Service) Authorize(ctx context.Context, object, action string) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	allowed, err := s.Can(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Warn("capability denied",
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// Can checks the actor's role first and then any grant made to the user
// directly.
func (s *Service) Can(actor actorcontext.Actor, object, action string) (bool, error) {
	if actor.Role == actorcontext.RoleSystem {
		return true, nil
	}

	allowed, err := s.enforcer.Enforce("role:"+string(actor.Role), object, action)
	if err != nil || allowed {
		return allowed, err
	}
	return s.enforcer.Enforce(actor.Subject(), object, action)
}

// Grant gives a single user a capability beyond their role.
func (s *Service) Grant(userID, object, action string) error {
	subject, err := grantSubject(userID, object, action)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(subject, object, action); err != nil {
		return err
	}
	s.log.Info("capability granted",
		zap.String("subject", subject),
		zap.String("object", object),
		zap.String("action", action),
	)
	return nil
}

func (s *Service) Revoke(userID, object, action string) error {
	subject, err := grantSubject(userID, object, action)
	if err != nil {
		return err
	}
	_, err = s.enforcer.RemovePolicy(subject, object, action)
	return err
}

// grantable lists what may be granted per user. Grants themselves stay
// with the admin role.
var grantable = map[string]bool{
	ObjectInsurer:        true,
	ObjectPolicy:         true,
	ObjectCustomerPolicy: true,
	ObjectPolicyPayment:  true,
	ObjectClaim:          true,
	ObjectCustomer:       true,
	ObjectAuditLog:       true,
}

var actions = map[string]bool{
	ActionView:   true,
	ActionCreate: true,
	ActionUpdate: true,
	ActionDelete: true,
}

func grantSubject(userID, object, action string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || !grantable[object] || !actions[action] {
		return "", ErrInvalidGrant
	}
	return actorcontext.Actor{ID: userID}.Subject(), nil
}
