package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rolegate/internal/rbac/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnsureSystemRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// second call is a no-op
	require.NoError(t, f.roles.EnsureSystemRoles(ctx))

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	for _, xid := range model.SystemRoles {
		role, err := f.roles.Get(ctx, xid)
		require.NoError(t, err)
		assert.True(t, role.IsSystem())
	}
}

func TestRoleInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("superadmin only", func(t *testing.T) {
		_, err := f.roles.Insert(ctx, userWith("bob"), model.CreateRoleReq{Name: "Editors"})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})

	t.Run("generates xid when empty", func(t *testing.T) {
		role, err := f.roles.Insert(ctx, admin(), model.CreateRoleReq{Name: "Editors"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(role.Xid, model.RoleXidPrefix))
		assert.NotZero(t, role.ID)
	})

	t.Run("duplicate xid", func(t *testing.T) {
		f.createRole(t, "ops")
		_, err := f.roles.Insert(ctx, admin(), model.CreateRoleReq{Xid: "ops", Name: "Ops"})
		result := requireValidation(t, err)
		assert.True(t, result.HasMessage("xid", model.CodeXidUsed))
	})

	t.Run("reports every field", func(t *testing.T) {
		_, err := f.roles.Insert(ctx, admin(), model.CreateRoleReq{Xid: model.RoleUser})
		result := requireValidation(t, err)
		assert.Equal(t, []string{"name", "xid"}, result.Keys())
	})
}

func TestSystemRolesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, xid := range model.SystemRoles {
		t.Run(xid, func(t *testing.T) {
			for _, holder := range []model.PermissionHolder{admin(), userWith("bob")} {
				err := f.roles.Delete(ctx, holder, xid)
				result := requireValidation(t, err)
				assert.True(t, result.HasMessage("xid", model.CodeSystemRole))

				_, err = f.roles.Update(ctx, holder, xid, model.UpdateRoleReq{Xid: xid + "2", Name: xid})
				result = requireValidation(t, err)
				assert.True(t, result.HasMessage("xid", model.CodeSystemRole))
			}

			_, err := f.roles.Get(ctx, xid)
			assert.NoError(t, err)
		})
	}

	t.Run("unchanged update still needs superadmin", func(t *testing.T) {
		same := model.UpdateRoleReq{Xid: model.RoleUser, Name: model.RoleUser}
		_, err := f.roles.Update(ctx, userWith("bob"), model.RoleUser, same)
		assert.ErrorIs(t, err, model.ErrPermissionDenied)

		role, err := f.roles.Update(ctx, admin(), model.RoleUser, same)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, role.Xid)
	})
}

func TestRoleUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("rename unreferenced role", func(t *testing.T) {
		f.createRole(t, "draft")
		// warm the cache under the old key
		_, err := f.roles.Get(ctx, "draft")
		require.NoError(t, err)

		role, err := f.roles.Update(ctx, admin(), "draft", model.UpdateRoleReq{Xid: "final", Name: "Final"})
		require.NoError(t, err)
		assert.Equal(t, "final", role.Xid)

		_, err = f.roles.Get(ctx, "draft")
		assert.ErrorIs(t, err, model.ErrNotFound)
		got, err := f.roles.Get(ctx, "final")
		require.NoError(t, err)
		assert.Equal(t, "Final", got.Name)
	})

	t.Run("xid is immutable once referenced", func(t *testing.T) {
		f.createRole(t, "readers")
		f.insertNote(t, model.RequireAnyRole("readers"), model.RequireAnyRole(model.RoleUser))

		_, err := f.roles.Update(ctx, admin(), "readers", model.UpdateRoleReq{Xid: "viewers", Name: "Viewers"})
		result := requireValidation(t, err)
		assert.True(t, result.HasMessage("xid", model.CodeXidImmutable))

		// name alone may still change
		role, err := f.roles.Update(ctx, admin(), "readers", model.UpdateRoleReq{Name: "Readers"})
		require.NoError(t, err)
		assert.Equal(t, "readers", role.Xid)
		assert.Equal(t, "Readers", role.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.roles.Update(ctx, admin(), "missing", model.UpdateRoleReq{Name: "x"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("non superadmin is denied", func(t *testing.T) {
		f.createRole(t, "misc")
		_, err := f.roles.Update(ctx, userWith("bob", "misc"), "misc", model.UpdateRoleReq{Name: "Misc"})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})
}

func TestRoleDeleteCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createRole(t, "readRole")
	f.createRole(t, "other")
	f.createRole(t, "editRole")

	sole := f.insertNote(t,
		model.RequireAnyRole("readRole"),
		model.MustMangoPermission([]string{"readRole", "other"}, []string{"editRole"}),
	)
	untouched := f.insertNote(t, model.RequireAnyRole(model.RoleUser), model.RequireAnyRole("editRole"))

	reader := userWith("reader", "readRole")
	_, err := f.notes.Get(ctx, reader, sole.ID)
	require.NoError(t, err)

	_, err = f.assignments.SetRoles(ctx, admin(), "reader", model.SetUserRolesReq{Roles: []string{"readRole", "other"}})
	require.NoError(t, err)

	require.NoError(t, f.roles.Delete(ctx, admin(), "readRole"))

	_, err = f.roles.Get(ctx, "readRole")
	assert.ErrorIs(t, err, model.ErrNotFound)

	t.Run("minterms are rewritten", func(t *testing.T) {
		got, err := f.notes.Get(ctx, admin(), sole.ID)
		require.NoError(t, err)
		assert.True(t, got.Permission(model.FieldReadPermission).IsEmpty())
		assert.Equal(t, [][]string{{"editRole"}, {"other"}}, got.Permission(model.FieldEditPermission).Minterms())
		assert.Equal(t, sole.Version+1, got.Version)
	})

	t.Run("emptied read denies former readers", func(t *testing.T) {
		_, err := f.notes.Get(ctx, reader, sole.ID)
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})

	t.Run("unrelated records keep their version", func(t *testing.T) {
		got, err := f.notes.Get(ctx, admin(), untouched.ID)
		require.NoError(t, err)
		assert.Equal(t, untouched.Version, got.Version)
	})

	t.Run("mappings and assignments are cleaned", func(t *testing.T) {
		rows, err := f.store.FindRoleMappings(ctx, "readRole")
		require.NoError(t, err)
		assert.Empty(t, rows)

		roles, err := f.assignments.GetRoles(ctx, admin(), "reader")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"other", model.RoleUser}, roles)
	})

	t.Run("metrics", func(t *testing.T) {
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoleCascades.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CascadeRewrites.WithLabelValues("note")))
	})

	t.Run("history", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			_, total, err := f.history.FindHistory(ctx, model.GetPermissionHistoryReq{
				Operation: model.OpRoleDelete,
				EntityXid: "readRole",
			})
			return err == nil && total == 1
		}, time.Second, 10*time.Millisecond)
	})
}

func TestRoleDeleteCascadeFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createRole(t, "doomed")
	res := f.insertNote(t, model.RequireAnyRole("doomed", model.RoleUser), model.RequireAnyRole(model.RoleUser))

	failing := &mockCascader{}
	failing.On("RemoveRole", mock.Anything, "doomed").Return(0, errors.New("store unavailable")).Times(2)
	f.roles.RegisterCascader(failing)

	err := f.roles.Delete(ctx, admin(), "doomed")
	require.ErrorIs(t, err, model.ErrCascadeFailed)
	assert.Contains(t, err.Error(), "store unavailable")
	failing.AssertExpectations(t)

	// the role survives so the deletion can be retried
	_, err = f.roles.Get(ctx, "doomed")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoleCascades.WithLabelValues("failure")))

	// rewrites that did land are harmless on retry
	got, err := f.notes.Get(ctx, admin(), res.ID)
	require.NoError(t, err)
	assert.False(t, got.Permission(model.FieldReadPermission).ContainsRole("doomed"))
}

func TestRoleDeleteRequiresSuperadmin(t *testing.T) {
	f := newFixture(t)
	f.createRole(t, "temp")

	err := f.roles.Delete(context.Background(), userWith("bob", "temp"), "temp")
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	err = f.roles.Delete(context.Background(), admin(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMissingRoles(t *testing.T) {
	f := newFixture(t)
	f.createRole(t, "present")

	missing, err := f.roles.MissingRoles(context.Background(), []string{"present", "absent", model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, []string{"absent"}, missing)
}
