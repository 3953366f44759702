package service

import (
	"context"
	"testing"
	"time"

	"rolegate/internal/rbac/lock"
	"rolegate/internal/rbac/metrics"
	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/permission"
	"rolegate/internal/rbac/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const permNoteCreate = "permissions.note.create"

type note struct {
	Text string `bson:"text" json:"text"`
}

func noteDefinition() Definition[note] {
	return Definition[note]{
		TypeName:             "note",
		XidPrefix:            "NT_",
		CreatePermissionType: permNoteCreate,
		Fields: PermissionFields{
			Read: model.FieldReadPermission,
			Edit: model.FieldEditPermission,
		},
		Validate: func(n note, result *model.ProcessResult) {
			if len(n.Text) > 20 {
				result.AddContextualMessage("text", model.CodeTooLong, "text is too long")
			}
		},
	}
}

type fixture struct {
	store       *repository.MemoryStore
	history     *repository.MemoryHistoryRepository
	guard       lock.Guard
	evaluator   *permission.Evaluator
	metrics     *metrics.Metrics
	roles       *RoleService
	notes       *ResourceService[note]
	noteRepo    *repository.MemoryResourceRepository[note]
	sysperms    *SystemPermissionService
	assignments *AssignmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newReplica(t, repository.NewMemoryStore(), repository.NewMemoryHistoryRepository(),
		repository.NewMemoryResourceRepository[note](), lock.NewLocalGuard())
}

// replica builds a second service stack over the same store and guard, the
// way another process of the same deployment would see them.
func (f *fixture) replica(t *testing.T) *fixture {
	t.Helper()
	return newReplica(t, f.store, f.history, f.noteRepo, f.guard)
}

func newReplica(t *testing.T, store *repository.MemoryStore, history *repository.MemoryHistoryRepository, noteRepo *repository.MemoryResourceRepository[note], guard lock.Guard) *fixture {
	t.Helper()
	ctx := context.Background()

	registry, err := permission.NewDefaultRegistry()
	require.NoError(t, err)
	evaluator := permission.NewEvaluator(registry)
	m := metrics.NewMetrics(nil)

	roles := NewRoleService(store, history, guard, m, RoleServiceOptions{
		CascadeRetries: 1,
		RetryBackoff:   time.Millisecond,
	})
	require.NoError(t, roles.EnsureSystemRoles(ctx))

	deps := Deps{
		Evaluator: evaluator,
		Validator: permission.NewValidator(evaluator),
		Roles:     roles,
		Mappings:  store,
		Sequences: store,
		History:   history,
		Guard:     guard,
		Metrics:   m,
	}
	sysperms := NewSystemPermissionService(store, deps)
	deps.Permissions = sysperms
	notes := NewResourceService(noteDefinition(), noteRepo, deps)
	assignments := NewAssignmentService(store, deps)
	require.NoError(t, sysperms.Load(ctx))

	roles.RegisterCascader(notes)
	roles.RegisterCascader(sysperms)
	roles.RegisterCascader(assignments)

	return &fixture{
		store:       store,
		history:     history,
		guard:       guard,
		evaluator:   evaluator,
		metrics:     m,
		roles:       roles,
		notes:       notes,
		noteRepo:    noteRepo,
		sysperms:    sysperms,
		assignments: assignments,
	}
}

func (f *fixture) createRole(t *testing.T, xid string) *model.Role {
	t.Helper()
	role, err := f.roles.Insert(context.Background(), admin(), model.CreateRoleReq{Xid: xid, Name: xid})
	require.NoError(t, err)
	return role
}

// grantCreate lets holders of p create notes.
func (f *fixture) grantCreate(t *testing.T, p *model.MangoPermission) {
	t.Helper()
	_, err := f.sysperms.Update(context.Background(), admin(), permNoteCreate, model.UpdateSystemPermissionReq{Permission: p})
	require.NoError(t, err)
}

func (f *fixture) insertNote(t *testing.T, read, edit *model.MangoPermission) *model.Resource[note] {
	t.Helper()
	res, err := f.notes.Insert(context.Background(), admin(), &model.Resource[note]{
		Name: "note",
		Permissions: map[string]*model.MangoPermission{
			model.FieldReadPermission: read,
			model.FieldEditPermission: edit,
		},
	})
	require.NoError(t, err)
	return res
}

func admin() *model.User {
	return &model.User{ID: "admin", Roles: []string{model.RoleSuperadmin}}
}

func userWith(id string, roles ...string) *model.User {
	return &model.User{ID: id, Roles: roles}
}

func requireValidation(t *testing.T, err error) *model.ProcessResult {
	t.Helper()
	require.ErrorIs(t, err, model.ErrValidationFailed)
	ve, ok := model.AsValidationError(err)
	require.True(t, ok)
	return ve.Result
}

type mockCascader struct {
	mock.Mock
}

func (m *mockCascader) CascadeName() string {
	return "mock"
}

func (m *mockCascader) ReferencesRole(ctx context.Context, roleXid string) (bool, error) {
	args := m.Called(ctx, roleXid)
	return args.Bool(0), args.Error(1)
}

func (m *mockCascader) RemoveRole(ctx context.Context, roleXid string) (int, error) {
	args := m.Called(ctx, roleXid)
	return args.Int(0), args.Error(1)
}
