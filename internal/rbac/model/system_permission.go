package model

import "time"

// Create-permission types and other system-wide permissions.
const (
	PermSystemPermissionsManage = "permissions.system.manage"
	PermDashboardCreate         = "permissions.dashboard.create"
	PermDataPointCreate         = "permissions.dataPoint.create"
)

// SystemPermission is a named, system-wide permission expression. Create
// permission types are stored this way rather than on each resource.
type SystemPermission struct {
	Name        string           `bson:"_id" json:"name"`
	Description string           `bson:"description,omitempty" json:"description,omitempty"`
	Permission  *MangoPermission `bson:"permission" json:"permission"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updated_at"`
	UpdatedBy   string           `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}
