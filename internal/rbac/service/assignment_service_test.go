package service

import (
	"context"
	"testing"
	"time"

	"rolegate/internal/rbac/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.assignments.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleAnonymous}, h.RoleXids())

	h, err = f.assignments.Resolve(ctx, "newcomer")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleUser}, h.RoleXids())
	assert.False(t, h.IsSuperadmin())
}

func TestAssignmentSetRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRole(t, "ops")

	t.Run("superadmin only", func(t *testing.T) {
		_, err := f.assignments.SetRoles(ctx, userWith("bob", "ops"), "bob", model.SetUserRolesReq{Roles: []string{"ops"}})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})

	t.Run("rejects implicit and unknown roles", func(t *testing.T) {
		_, err := f.assignments.SetRoles(ctx, admin(), "bob", model.SetUserRolesReq{
			Roles: []string{model.RoleUser, "ghost", model.RoleAnonymous},
		})
		result := requireValidation(t, err)
		assert.Equal(t, []string{"roles"}, result.Keys())
		assert.True(t, result.HasMessage("roles", model.CodeImplicitRole))
		assert.True(t, result.HasMessage("roles", model.CodeRoleNotFound))
	})

	t.Run("stored roles resolve", func(t *testing.T) {
		_, err := f.assignments.SetRoles(ctx, admin(), "bob", model.SetUserRolesReq{Roles: []string{"ops"}})
		require.NoError(t, err)

		h, err := f.assignments.Resolve(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"ops", model.RoleUser}, h.RoleXids())
	})

	t.Run("users read their own roles only", func(t *testing.T) {
		roles, err := f.assignments.GetRoles(ctx, userWith("bob", "ops"), "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"ops", model.RoleUser}, roles)

		_, err = f.assignments.GetRoles(ctx, userWith("eve"), "bob")
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})
}

func TestAssignmentBootstrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRole(t, "ops")
	_, err := f.assignments.SetRoles(ctx, admin(), "root", model.SetUserRolesReq{Roles: []string{"ops"}})
	require.NoError(t, err)

	require.NoError(t, f.assignments.Bootstrap(ctx, []string{"root", "", "second"}))
	// idempotent
	require.NoError(t, f.assignments.Bootstrap(ctx, []string{"root"}))

	a, err := f.store.GetAssignment(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", model.RoleSuperadmin}, a.Roles)

	h, err := f.assignments.Resolve(ctx, "second")
	require.NoError(t, err)
	assert.True(t, h.IsSuperadmin())
}

func TestHistoryServiceFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewHistoryService(f.history)
	f.createRole(t, "audited")

	_, err := svc.Find(ctx, userWith("bob"), model.GetPermissionHistoryReq{})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	req := model.GetPermissionHistoryReq{EntityType: model.EntityRole, EntityXid: "audited"}
	require.NoError(t, req.Validate())
	require.Eventually(t, func() bool {
		resp, err := svc.Find(ctx, admin(), req)
		return err == nil && resp.TotalCount == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := svc.Find(ctx, admin(), req)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, model.OpRoleCreate, resp.Data[0].Operation)
	assert.Equal(t, "admin", resp.Data[0].CallerID)
	assert.Equal(t, 1, resp.Page)
}
