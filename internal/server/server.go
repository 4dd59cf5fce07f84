package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/audit"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/claim"
	claimdomain "github.com/smallbiznis/tutorbase/internal/claim/domain"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/customer"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	"github.com/smallbiznis/tutorbase/internal/customerpolicy"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/identifier"
	"github.com/smallbiznis/tutorbase/internal/insurer"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	obslogger "github.com/smallbiznis/tutorbase/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tutorbase/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tutorbase/internal/observability/tracing"
	"github.com/smallbiznis/tutorbase/internal/policy"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/internal/policypayment"
	policypaymentdomain "github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	access.Module,
	audit.Module,
	identifier.Module,
	customer.Module,
	insurer.Module,
	policy.Module,
	customerpolicy.Module,
	policypayment.Module,
	claim.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *obsmetrics.Metrics) *gin.Engine {
	registerValidatorTagNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	log               *zap.Logger
	authz             access.Authorizer
	auditSvc          auditdomain.Service
	customerSvc       customerdomain.Service
	insurerSvc        insurerdomain.Service
	policySvc         policydomain.Service
	customerPolicySvc customerpolicydomain.Service
	paymentSvc        policypaymentdomain.Service
	claimSvc          claimdomain.Service
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	Log               *zap.Logger
	Authz             access.Authorizer
	AuditSvc          auditdomain.Service
	CustomerSvc       customerdomain.Service
	InsurerSvc        insurerdomain.Service
	PolicySvc         policydomain.Service
	CustomerPolicySvc customerpolicydomain.Service
	PaymentSvc        policypaymentdomain.Service
	ClaimSvc          claimdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		log:               p.Log.Named("http.server"),
		authz:             p.Authz,
		auditSvc:          p.AuditSvc,
		customerSvc:       p.CustomerSvc,
		insurerSvc:        p.InsurerSvc,
		policySvc:         p.PolicySvc,
		customerPolicySvc: p.CustomerPolicySvc,
		paymentSvc:        p.PaymentSvc,
		claimSvc:          p.ClaimSvc,
	}

	if s.cfg.AuthJWTSecret == "" {
		s.log.Warn("AUTH_JWT_SECRET is empty, every api request will be rejected")
	}

	s.registerAPIRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.Authenticated())

	// -------- Insurers --------
	api.GET("/insurers", s.require(access.ObjectInsurer, access.ActionView), s.ListInsurers)
	api.POST("/insurers", s.require(access.ObjectInsurer, access.ActionCreate), s.CreateInsurer)
	api.GET("/insurers/code/:code", s.require(access.ObjectInsurer, access.ActionView), s.GetInsurerByCode)
	api.GET("/insurers/:id", s.require(access.ObjectInsurer, access.ActionView), s.GetInsurerByID)
	api.PATCH("/insurers/:id", s.require(access.ObjectInsurer, access.ActionUpdate), s.UpdateInsurer)
	api.DELETE("/insurers/:id", s.require(access.ObjectInsurer, access.ActionDelete), s.DeleteInsurer)

	// -------- Policies --------
	api.GET("/policies", s.require(access.ObjectPolicy, access.ActionView), s.ListPolicies)
	api.POST("/policies", s.require(access.ObjectPolicy, access.ActionCreate), s.CreatePolicy)
	api.GET("/policies/code/:code", s.require(access.ObjectPolicy, access.ActionView), s.GetPolicyByCode)
	api.GET("/policies/:id", s.require(access.ObjectPolicy, access.ActionView), s.GetPolicyByID)
	api.PATCH("/policies/:id", s.require(access.ObjectPolicy, access.ActionUpdate), s.UpdatePolicy)
	api.DELETE("/policies/:id", s.require(access.ObjectPolicy, access.ActionDelete), s.DeletePolicy)

	// -------- Customer policies --------
	api.GET("/customer-policies", s.require(access.ObjectCustomerPolicy, access.ActionView), s.ListCustomerPolicies)
	api.POST("/customer-policies", s.require(access.ObjectCustomerPolicy, access.ActionCreate), s.CreateCustomerPolicy)
	api.GET("/customer-policies/:id", s.require(access.ObjectCustomerPolicy, access.ActionView), s.GetCustomerPolicyByID)
	api.PATCH("/customer-policies/:id", s.require(access.ObjectCustomerPolicy, access.ActionUpdate), s.UpdateCustomerPolicy)
	api.DELETE("/customer-policies/:id", s.require(access.ObjectCustomerPolicy, access.ActionDelete), s.DeleteCustomerPolicy)

	// -------- Premium payments --------
	api.GET("/policy-payments", s.require(access.ObjectPolicyPayment, access.ActionView), s.ListPolicyPayments)
	api.POST("/policy-payments", s.require(access.ObjectPolicyPayment, access.ActionCreate), s.CreatePolicyPayment)
	api.GET("/policy-payments/:id", s.require(access.ObjectPolicyPayment, access.ActionView), s.GetPolicyPaymentByID)
	api.PATCH("/policy-payments/:id", s.require(access.ObjectPolicyPayment, access.ActionUpdate), s.UpdatePolicyPayment)
	api.DELETE("/policy-payments/:id", s.require(access.ObjectPolicyPayment, access.ActionDelete), s.DeletePolicyPayment)

	// -------- Claims --------
	api.GET("/claims", s.require(access.ObjectClaim, access.ActionView), s.ListClaims)
	api.POST("/claims", s.require(access.ObjectClaim, access.ActionCreate), s.CreateClaim)
	api.GET("/claims/:id", s.require(access.ObjectClaim, access.ActionView), s.GetClaimByID)
	api.PATCH("/claims/:id", s.require(access.ObjectClaim, access.ActionUpdate), s.UpdateClaim)
	api.DELETE("/claims/:id", s.require(access.ObjectClaim, access.ActionDelete), s.DeleteClaim)
	api.POST("/claims/:id/transition", s.require(access.ObjectClaim, access.ActionUpdate), s.TransitionClaim)

	// -------- Customers --------
	api.GET("/customers", s.require(access.ObjectCustomer, access.ActionView), s.ListCustomers)
	api.POST("/customers", s.require(access.ObjectCustomer, access.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.require(access.ObjectCustomer, access.ActionView), s.GetCustomerByID)

	// -------- Audit --------
	api.GET("/audit-logs", s.require(access.ObjectAuditLog, access.ActionView), s.ListAuditLogs)

	// -------- Access grants --------
	api.POST("/access/grants", s.require(access.ObjectAccessGrant, access.ActionCreate), s.CreateAccessGrant)
	api.DELETE("/access/grants/:userId/:object/:action", s.require(access.ObjectAccessGrant, access.ActionDelete), s.DeleteAccessGrant)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrRouteNotFound)
	})
}
