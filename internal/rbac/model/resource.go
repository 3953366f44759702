package model

import (
	"sort"
	"time"
)

// Permission field keys shared by the bundled resource types. They double as
// the ProcessResult keys so clients can attach messages to form controls.
const (
	FieldReadPermission   = "readPermission"
	FieldEditPermission   = "editPermission"
	FieldSetPermission    = "setPermission"
	FieldDeletePermission = "deletePermission"
)

// Resource is a stored record of one resource type. Payload is opaque to the
// permission core.
type Resource[P any] struct {
	ID          int64                       `bson:"_id" json:"id"`
	Xid         string                      `bson:"xid" json:"xid"`
	Name        string                      `bson:"name" json:"name"`
	Permissions map[string]*MangoPermission `bson:"permissions" json:"permissions"`
	Payload     P                           `bson:"payload" json:"payload"`
	Version     int64                       `bson:"version" json:"version"`
	CreatedAt   time.Time                   `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time                   `bson:"updated_at" json:"updated_at"`

	// RoleXids is the union of roles across Permissions, stored so the
	// cascade can find referencing records with an index.
	RoleXids []string `bson:"role_xids" json:"-"`
}

func (r *Resource[P]) Permission(field string) *MangoPermission {
	if r == nil || r.Permissions == nil {
		return nil
	}
	return r.Permissions[field]
}

// Clone copies the record and its permission map. Permissions are immutable
// values and are shared; the payload is copied by value.
func (r *Resource[P]) Clone() *Resource[P] {
	if r == nil {
		return nil
	}
	c := *r
	if r.Permissions != nil {
		c.Permissions = make(map[string]*MangoPermission, len(r.Permissions))
		for k, v := range r.Permissions {
			c.Permissions[k] = v
		}
	}
	c.RoleXids = append([]string(nil), r.RoleXids...)
	return &c
}

// ReferencedRoles recomputes RoleXids from Permissions.
func (r *Resource[P]) ReferencedRoles() []string {
	set := make(map[string]struct{})
	for _, p := range r.Permissions {
		for _, xid := range p.Roles() {
			set[xid] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for xid := range set {
		out = append(out, xid)
	}
	sort.Strings(out)
	return out
}

// PermissionMapping is a reporting row linking a resource's permission field
// to a role. The expression on the resource stays authoritative.
type PermissionMapping struct {
	ResourceType   string `bson:"resource_type" json:"resource_type"`
	ResourceID     int64  `bson:"resource_id" json:"resource_id"`
	PermissionType string `bson:"permission_type" json:"permission_type"`
	RoleXid        string `bson:"role_xid" json:"role_xid"`
}

// MappingsFor builds the mapping rows for every permission field of r.
func MappingsFor[P any](resourceType string, r *Resource[P]) []PermissionMapping {
	fields := make([]string, 0, len(r.Permissions))
	for f := range r.Permissions {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var rows []PermissionMapping
	for _, f := range fields {
		for _, xid := range r.Permissions[f].Roles() {
			rows = append(rows, PermissionMapping{
				ResourceType:   resourceType,
				ResourceID:     r.ID,
				PermissionType: f,
				RoleXid:        xid,
			})
		}
	}
	return rows
}
