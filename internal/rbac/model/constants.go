package model

// History operations
const (
	OpRoleCreate             = "role_create"
	OpRoleUpdate             = "role_update"
	OpRoleDelete             = "role_delete"
	OpResourceCreate         = "resource_create"
	OpResourceUpdate         = "resource_update"
	OpResourceDelete         = "resource_delete"
	OpResourceSet            = "resource_set"
	OpResourceCascade        = "resource_cascade"
	OpSystemPermissionUpdate = "system_permission_update"
	OpAssignmentUpdate       = "assignment_update"
)

// Entity types recorded in history
const (
	EntityRole             = "role"
	EntitySystemPermission = "system_permission"
	EntityAssignment       = "assignment"
)

// Resource types
const (
	ResourceTypeDashboard = "dashboard"
	ResourceTypeDataPoint = "data_point"
)

const (
	RoleXidPrefix  = "RL_"
	XidMaxLength   = 100
	NameMaxLength  = 255
	DefaultPage    = 1
	DefaultSize    = 100
	MaxHistorySize = 1000
)
