package access

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Authorizer {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRoleHierarchy(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		role   actorcontext.Role
		object string
		action string
		want   bool
	}{
		{actorcontext.RoleStaff, ObjectClaim, ActionCreate, true},
		{actorcontext.RoleStaff, ObjectClaim, ActionDelete, false},
		{actorcontext.RoleStaff, ObjectInsurer, ActionView, true},
		{actorcontext.RoleStaff, ObjectInsurer, ActionCreate, false},
		{actorcontext.RoleStaff, ObjectAuditLog, ActionView, false},
		{actorcontext.RoleModerator, ObjectClaim, ActionView, true},
		{actorcontext.RoleModerator, ObjectClaim, ActionDelete, true},
		{actorcontext.RoleModerator, ObjectPolicy, ActionCreate, true},
		{actorcontext.RoleModerator, ObjectAuditLog, ActionView, false},
		{actorcontext.RoleAdmin, ObjectCustomerPolicy, ActionDelete, true},
		{actorcontext.RoleAdmin, ObjectAuditLog, ActionView, true},
		{actorcontext.RoleSystem, ObjectAuditLog, ActionView, true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s_%s", tc.role, tc.object, tc.action), func(t *testing.T) {
			got, err := svc.Can(actorcontext.Actor{ID: "u1", Role: tc.role}, tc.object, tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthorizeRequiresActor(t *testing.T) {
	svc := newTestService(t)

	err := svc.Authorize(context.Background(), ObjectClaim, ActionView)
	assert.True(t, errors.Is(err, errs.ErrUnauthenticated))

	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "u1", Role: actorcontext.RoleStaff})
	err = svc.Authorize(ctx, ObjectClaim, ActionDelete)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	assert.NoError(t, svc.Authorize(ctx, ObjectClaim, ActionView))
}

func TestExplicitGrantForStaff(t *testing.T) {
	svc := newTestService(t)
	staff := actorcontext.Actor{ID: "u7", Role: actorcontext.RoleStaff}

	ok, err := svc.Can(staff, ObjectPolicyPayment, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Grant("u7", ObjectPolicyPayment, ActionDelete))

	ok, err = svc.Can(staff, ObjectPolicyPayment, ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)

	other := actorcontext.Actor{ID: "u8", Role: actorcontext.RoleStaff}
	ok, err = svc.Can(other, ObjectPolicyPayment, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Revoke("u7", ObjectPolicyPayment, ActionDelete))
	ok, err = svc.Can(staff, ObjectPolicyPayment, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(svc.Grant(" ", ObjectClaim, ActionDelete), errs.ErrValidation))
	assert.True(t, errors.Is(svc.Grant("u7", "invoice", ActionDelete), errs.ErrValidation))
	assert.True(t, errors.Is(svc.Grant("u7", ObjectClaim, "approve"), errs.ErrValidation))
	assert.True(t, errors.Is(svc.Grant("u7", ObjectAccessGrant, ActionCreate), errs.ErrValidation))
}

func TestOnlyAdminsManageGrants(t *testing.T) {
	svc := newTestService(t)
	for role, want := range map[actorcontext.Role]bool{
		actorcontext.RoleStaff:     false,
		actorcontext.RoleModerator: false,
		actorcontext.RoleAdmin:     true,
	} {
		actor := actorcontext.Actor{ID: "u1", Role: role}
		for _, action := range []string{ActionCreate, ActionDelete} {
			ok, err := svc.Can(actor, ObjectAccessGrant, action)
			require.NoError(t, err)
			assert.Equal(t, want, ok, "%s %s", role, action)
		}
	}
}

func TestPersistentEnforcerSeedsOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:access_enforcer?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	ok, err := enforcer.Enforce("role:admin", ObjectClaim, ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	seen := map[string]int{}
	for _, p := range policies {
		seen[fmt.Sprint(p)]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

type scoped struct {
	ID        int64
	CreatedBy string
}

func TestScopeAddsOwnershipForBaseRole(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:access_scope?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scoped{}))
	require.NoError(t, db.Create(&[]scoped{{ID: 1, CreatedBy: "a"}, {ID: 2, CreatedBy: "b"}}).Error)

	var rows []scoped
	require.NoError(t, Scope(db.Model(&scoped{}), actorcontext.RoleStaff, "a").Find(&rows).Error)
	assert.Len(t, rows, 1)

	rows = nil
	require.NoError(t, Scope(db.Model(&scoped{}), actorcontext.RoleModerator, "a").Find(&rows).Error)
	assert.Len(t, rows, 2)

	rows = nil
	require.NoError(t, Owned(context.Background()).Apply(db.Model(&scoped{})).Find(&rows).Error)
	assert.Empty(t, rows)

	rows = nil
	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "b", Role: actorcontext.RoleStaff})
	require.NoError(t, Owned(ctx).Apply(db.Model(&scoped{})).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
}
