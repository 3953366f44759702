package repository

import (
	"context"
	"testing"

	"rolegate/internal/rbac/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notePayload struct {
	Text string `bson:"text" json:"text"`
}

func TestMemoryStoreRoles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertRole(ctx, &model.Role{ID: 1, Xid: "editors", Name: "Editors"}))

	t.Run("duplicate xid is rejected", func(t *testing.T) {
		err := s.InsertRole(ctx, &model.Role{ID: 2, Xid: "editors", Name: "Other"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("update renames in place", func(t *testing.T) {
		require.NoError(t, s.UpdateRole(ctx, &model.Role{ID: 1, Xid: "writers", Name: "Writers"}))
		role, err := s.GetRoleByXid(ctx, "writers")
		require.NoError(t, err)
		assert.Equal(t, int64(1), role.ID)
		_, err = s.GetRoleByXid(ctx, "editors")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete then lookup is not found", func(t *testing.T) {
		require.NoError(t, s.DeleteRole(ctx, 1))
		_, err := s.GetRoleByID(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteRole(ctx, 1), ErrNotFound)
	})
}

func TestMemoryStoreSequence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := s.NextID(ctx, "roles")
	b, _ := s.NextID(ctx, "roles")
	c, _ := s.NextID(ctx, "dashboard")
	assert.Equal(t, []int64{1, 2, 1}, []int64{a, b, c})
}

func TestMemoryStoreMappings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rows := []model.PermissionMapping{
		{ResourceType: "dashboard", ResourceID: 1, PermissionType: model.FieldReadPermission, RoleXid: "a"},
		{ResourceType: "dashboard", ResourceID: 1, PermissionType: model.FieldEditPermission, RoleXid: "b"},
	}
	require.NoError(t, s.ReplaceMappings(ctx, "dashboard", 1, rows))
	// rows are filed under the resource being replaced, not the one they name
	require.NoError(t, s.ReplaceMappings(ctx, "dashboard", 2, rows[:1]))
	found, _ := s.FindResourceMappings(ctx, "dashboard", 2)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ResourceID)
	assert.Equal(t, int64(1), rows[0].ResourceID)

	// replacing drops the old rows of that resource only
	require.NoError(t, s.ReplaceMappings(ctx, "dashboard", 1, rows[1:]))
	found, _ = s.FindResourceMappings(ctx, "dashboard", 1)
	assert.Len(t, found, 1)
	found, _ = s.FindResourceMappings(ctx, "dashboard", 2)
	assert.Len(t, found, 1)

	n, err := s.DeleteRoleMappings(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteResourceMappings(ctx, "dashboard", 1))
	found, _ = s.FindRoleMappings(ctx, "b")
	assert.Empty(t, found)
}

func TestMemoryStoreAssignments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertAssignment(ctx, &model.RoleAssignment{UserID: "u1", Roles: []string{"a", "b"}}))
	require.NoError(t, s.UpsertAssignment(ctx, &model.RoleAssignment{UserID: "u2", Roles: []string{"b"}}))

	count, _ := s.CountAssignmentsByRole(ctx, "b")
	assert.Equal(t, int64(2), count)

	n, err := s.RemoveRoleFromAssignments(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	a, err := s.GetAssignment(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, a.Roles)

	_, err = s.GetAssignment(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryResourceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResourceRepository[notePayload]()

	res := &model.Resource[notePayload]{
		ID:   1,
		Xid:  "N_1",
		Name: "note",
		Permissions: map[string]*model.MangoPermission{
			model.FieldReadPermission: model.RequireAnyRole("a", "b"),
		},
		Payload: notePayload{Text: "hi"},
	}
	require.NoError(t, repo.Insert(ctx, res))
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, []string{"a", "b"}, res.RoleXids)

	t.Run("stored copy is isolated from caller", func(t *testing.T) {
		res.Payload.Text = "changed"
		got, err := repo.GetByXid(ctx, "N_1")
		require.NoError(t, err)
		assert.Equal(t, "hi", got.Payload.Text)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		got, _ := repo.GetByID(ctx, 1)
		require.NoError(t, repo.Update(ctx, got, 1))
		assert.Equal(t, int64(2), got.Version)
		assert.ErrorIs(t, repo.Update(ctx, got, 1), ErrVersionConflict)
	})

	t.Run("find by role uses referenced roles", func(t *testing.T) {
		found, _ := repo.FindByRole(ctx, "b")
		assert.Len(t, found, 1)
		n, _ := repo.CountByRole(ctx, "zzz")
		assert.Zero(t, n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 1))
		_, err := repo.GetByID(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	for i := 0; i < 3; i++ {
		entry := &HistoryEntry{Operation: model.OpRoleCreate, CallerID: "admin", EntityType: model.EntityRole, EntityXid: "r"}
		require.NoError(t, repo.CreateHistory(ctx, entry.ToPermissionHistory()))
	}
	require.NoError(t, repo.CreateHistory(ctx, &model.PermissionHistory{Operation: model.OpRoleDelete, EntityType: model.EntityRole}))

	records, total, err := repo.FindHistory(ctx, model.GetPermissionHistoryReq{Operation: model.OpRoleCreate, Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, records, 2)

	records, _, err = repo.FindHistory(ctx, model.GetPermissionHistoryReq{Operation: model.OpRoleCreate, Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, records)
}
