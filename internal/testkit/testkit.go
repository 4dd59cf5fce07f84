// Package testkit wires the insurance services against an in-memory sqlite
// database for tests.
package testkit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	auditrepository "github.com/smallbiznis/tutorbase/internal/audit/repository"
	auditservice "github.com/smallbiznis/tutorbase/internal/audit/service"
	claimdomain "github.com/smallbiznis/tutorbase/internal/claim/domain"
	claimrepository "github.com/smallbiznis/tutorbase/internal/claim/repository"
	claimservice "github.com/smallbiznis/tutorbase/internal/claim/service"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	customerrepository "github.com/smallbiznis/tutorbase/internal/customer/repository"
	customerservice "github.com/smallbiznis/tutorbase/internal/customer/service"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	customerpolicyrepository "github.com/smallbiznis/tutorbase/internal/customerpolicy/repository"
	customerpolicyservice "github.com/smallbiznis/tutorbase/internal/customerpolicy/service"
	"github.com/smallbiznis/tutorbase/internal/identifier"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	insurerrepository "github.com/smallbiznis/tutorbase/internal/insurer/repository"
	insurerservice "github.com/smallbiznis/tutorbase/internal/insurer/service"
	"github.com/smallbiznis/tutorbase/internal/migration"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	policyrepository "github.com/smallbiznis/tutorbase/internal/policy/repository"
	policyservice "github.com/smallbiznis/tutorbase/internal/policy/service"
	paymentdomain "github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	paymentrepository "github.com/smallbiznis/tutorbase/internal/policypayment/repository"
	paymentservice "github.com/smallbiznis/tutorbase/internal/policypayment/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Users used throughout the tests.
const (
	StaffID     = "staff-1"
	OtherStaff  = "staff-2"
	ModeratorID = "mod-1"
	AdminID     = "admin-1"
)

// OpenDB returns a fresh in-memory database with the schema applied. Each
// test gets its own database named after the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func As(id string, role actorcontext.Role) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: id, Role: role})
}

func Staff() context.Context         { return As(StaffID, actorcontext.RoleStaff) }
func OtherStaffCtx() context.Context { return As(OtherStaff, actorcontext.RoleStaff) }
func Moderator() context.Context     { return As(ModeratorID, actorcontext.RoleModerator) }
func Admin() context.Context         { return As(AdminID, actorcontext.RoleAdmin) }

// Stack holds every insurance service bound to one database.
type Stack struct {
	DB     *gorm.DB
	Clock  *clock.FakeClock
	Config *config.InsuranceConfigHolder
	Access access.Authorizer

	Audit          auditdomain.Service
	Customers      customerdomain.Service
	Insurers       insurerdomain.Service
	Policies       policydomain.Service
	CustomerPolicy customerpolicydomain.Service
	Payments       paymentdomain.Service
	Claims         claimdomain.Service
}

// NewStack wires the services the way the fx modules do. The clock starts
// at now.
func NewStack(t *testing.T, now time.Time) *Stack {
	t.Helper()
	db := OpenDB(t)
	node := Node(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(now)
	holder := config.StaticInsuranceConfig(config.DefaultInsuranceConfig())
	app := config.Config{DefaultCurrency: "INR", IdentifierCounter: config.CounterModeCount}

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
	})
	enforcer, err := access.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := access.NewService(access.Params{Log: log, Enforcer: enforcer})
	ids := identifier.NewFactory(identifier.Params{DB: db, Log: log, App: app, Config: holder})

	customers := customerservice.New(customerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Config: holder,
		Repo: customerrepository.Provide(), AuditSvc: audit,
	})
	insurers := insurerservice.New(insurerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Config: holder,
		Repo: insurerrepository.Provide(), AuditSvc: audit,
	})
	policies := policyservice.New(policyservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, App: app, Config: holder,
		Repo: policyrepository.Provide(), InsurerSvc: insurers, AuditSvc: audit,
	})
	bindingRepo := customerpolicyrepository.Provide()
	bindings := customerpolicyservice.New(customerpolicyservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Config: holder,
		Repo: bindingRepo, Identifiers: ids,
		CustomerSvc: customers, PolicySvc: policies, InsurerSvc: insurers, AuditSvc: audit,
	})
	payments := paymentservice.New(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, App: app, Config: holder,
		Repo: paymentrepository.Provide(), BindingRepo: bindingRepo, Identifiers: ids,
		CustomerPolicySvc: bindings, PolicySvc: policies, InsurerSvc: insurers,
		CustomerSvc: customers, AuditSvc: audit, Authz: authz,
	})
	claims := claimservice.New(claimservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, App: app, Config: holder,
		Repo: claimrepository.Provide(), Identifiers: ids,
		CustomerPolicySvc: bindings, PolicySvc: policies, AuditSvc: audit, Authz: authz,
	})

	return &Stack{
		DB:             db,
		Clock:          clk,
		Config:         holder,
		Access:         authz,
		Audit:          audit,
		Customers:      customers,
		Insurers:       insurers,
		Policies:       policies,
		CustomerPolicy: bindings,
		Payments:       payments,
		Claims:         claims,
	}
}

// AuditCount counts audit rows for one entity and action.
func AuditCount(t *testing.T, db *gorm.DB, entityType, entityID, action string) int64 {
	t.Helper()
	var count int64
	err := db.Model(&auditdomain.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", entityType, entityID, action).
		Count(&count).Error
	require.NoError(t, err)
	return count
}
