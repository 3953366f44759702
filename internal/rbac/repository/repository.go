package repository

import (
	"context"
	"errors"

	"rolegate/internal/rbac/model"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("record version changed")
)

// SequenceRepository hands out internal ids. Ids are never reused.
type SequenceRepository interface {
	NextID(ctx context.Context, sequence string) (int64, error)
}

type RoleRepository interface {
	// Insert stores a new role. ErrDuplicate when the xid or id exists.
	InsertRole(ctx context.Context, role *model.Role) error
	// UpdateRole replaces xid and name of the role with role.ID.
	UpdateRole(ctx context.Context, role *model.Role) error
	DeleteRole(ctx context.Context, id int64) error
	GetRoleByID(ctx context.Context, id int64) (*model.Role, error)
	GetRoleByXid(ctx context.Context, xid string) (*model.Role, error)
	ListRoles(ctx context.Context) ([]*model.Role, error)
}

// ResourceRepository stores the records of one resource type.
type ResourceRepository[P any] interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, r *model.Resource[P]) error
	// Update writes r when the stored version equals expectedVersion and
	// bumps r.Version. ErrVersionConflict otherwise.
	Update(ctx context.Context, r *model.Resource[P], expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Resource[P], error)
	GetByXid(ctx context.Context, xid string) (*model.Resource[P], error)
	List(ctx context.Context) ([]*model.Resource[P], error)
	// FindByRole returns every record whose permissions reference roleXid.
	FindByRole(ctx context.Context, roleXid string) ([]*model.Resource[P], error)
	CountByRole(ctx context.Context, roleXid string) (int64, error)
}

// MappingRepository maintains the (resource, permission type) to role
// reporting table.
type MappingRepository interface {
	// ReplaceMappings files rows under the given resource, whatever
	// resource the rows themselves name.
	ReplaceMappings(ctx context.Context, resourceType string, resourceID int64, rows []model.PermissionMapping) error
	DeleteResourceMappings(ctx context.Context, resourceType string, resourceID int64) error
	DeleteRoleMappings(ctx context.Context, roleXid string) (int64, error)
	FindRoleMappings(ctx context.Context, roleXid string) ([]model.PermissionMapping, error)
	FindResourceMappings(ctx context.Context, resourceType string, resourceID int64) ([]model.PermissionMapping, error)
}

type SystemPermissionRepository interface {
	GetSystemPermission(ctx context.Context, name string) (*model.SystemPermission, error)
	ListSystemPermissions(ctx context.Context) ([]*model.SystemPermission, error)
	UpsertSystemPermission(ctx context.Context, sp *model.SystemPermission) error
}

type AssignmentRepository interface {
	GetAssignment(ctx context.Context, userID string) (*model.RoleAssignment, error)
	UpsertAssignment(ctx context.Context, a *model.RoleAssignment) error
	CountAssignmentsByRole(ctx context.Context, roleXid string) (int64, error)
	// RemoveRoleFromAssignments pulls roleXid from every assignment and
	// returns how many were changed.
	RemoveRoleFromAssignments(ctx context.Context, roleXid string) (int64, error)
}

// stampMappings copies rows filed under one resource. The caller's rows are
// not modified.
func stampMappings(resourceType string, resourceID int64, rows []model.PermissionMapping) []model.PermissionMapping {
	out := make([]model.PermissionMapping, len(rows))
	for i, row := range rows {
		row.ResourceType = resourceType
		row.ResourceID = resourceID
		out[i] = row
	}
	return out
}

// Store groups the repositories not tied to a resource type. Both the Mongo
// and memory implementations satisfy it.
type Store interface {
	SequenceRepository
	RoleRepository
	MappingRepository
	SystemPermissionRepository
	AssignmentRepository
	EnsureIndexes(ctx context.Context) error
}
