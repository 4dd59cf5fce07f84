package access

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInsurer        = "insurer"
	ObjectPolicy         = "policy"
	ObjectCustomerPolicy = "customer_policy"
	ObjectPolicyPayment  = "policy_payment"
	ObjectClaim          = "claim"
	ObjectCustomer       = "customer"
	ObjectAuditLog       = "audit_log"
	ObjectAccessGrant    = "access_grant"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const (
	roleStaff     = "role:staff"
	roleModerator = "role:moderator"
	roleAdmin     = "role:admin"
)

// NewEnforcer loads policies persisted through gorm and seeds the defaults.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Staff: day-to-day records, read-only catalog
		{roleStaff, ObjectCustomer, ActionView},
		{roleStaff, ObjectCustomer, ActionCreate},
		{roleStaff, ObjectCustomer, ActionUpdate},
		{roleStaff, ObjectCustomerPolicy, ActionView},
		{roleStaff, ObjectCustomerPolicy, ActionCreate},
		{roleStaff, ObjectCustomerPolicy, ActionUpdate},
		{roleStaff, ObjectPolicyPayment, ActionView},
		{roleStaff, ObjectPolicyPayment, ActionCreate},
		{roleStaff, ObjectPolicyPayment, ActionUpdate},
		{roleStaff, ObjectClaim, ActionView},
		{roleStaff, ObjectClaim, ActionCreate},
		{roleStaff, ObjectClaim, ActionUpdate},
		{roleStaff, ObjectInsurer, ActionView},
		{roleStaff, ObjectPolicy, ActionView},

		// Moderator: deletes and catalog maintenance
		{roleModerator, ObjectCustomer, ActionDelete},
		{roleModerator, ObjectCustomerPolicy, ActionDelete},
		{roleModerator, ObjectPolicyPayment, ActionDelete},
		{roleModerator, ObjectClaim, ActionDelete},
		{roleModerator, ObjectInsurer, ActionCreate},
		{roleModerator, ObjectInsurer, ActionUpdate},
		{roleModerator, ObjectInsurer, ActionDelete},
		{roleModerator, ObjectPolicy, ActionCreate},
		{roleModerator, ObjectPolicy, ActionUpdate},
		{roleModerator, ObjectPolicy, ActionDelete},

		// Admin
		{roleAdmin, ObjectAuditLog, ActionView},
		{roleAdmin, ObjectAccessGrant, ActionCreate},
		{roleAdmin, ObjectAccessGrant, ActionDelete},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{roleModerator, roleStaff},
		{roleAdmin, roleModerator},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
