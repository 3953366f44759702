package model

import "time"

// System roles. They are seeded at startup and can never be renamed or deleted.
const (
	RoleSuperadmin = "superadmin"
	RoleUser       = "user"
	RoleAnonymous  = "anonymous"
)

// SystemRoles lists the immutable roles in seeding order.
var SystemRoles = []string{RoleSuperadmin, RoleUser, RoleAnonymous}

// IsSystemRole reports whether xid names one of the three system roles.
func IsSystemRole(xid string) bool {
	switch xid {
	case RoleSuperadmin, RoleUser, RoleAnonymous:
		return true
	}
	return false
}

type Role struct {
	ID        int64     `bson:"_id" json:"id"`
	Xid       string    `bson:"xid" json:"xid"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

func (r *Role) IsSystem() bool {
	return r != nil && IsSystemRole(r.Xid)
}
