package model

import "time"

// PermissionHistory is an append-only audit record, read-only after creation.
type PermissionHistory struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	Operation string `bson:"operation" json:"operation"`
	CallerID  string `bson:"caller_id" json:"caller_id"`

	EntityType string `bson:"entity_type" json:"entity_type"`
	EntityXid  string `bson:"entity_xid" json:"entity_xid"`
	EntityID   int64  `bson:"entity_id,omitempty" json:"entity_id,omitempty"`

	// Role affected by role and cascade operations
	Role string `bson:"role,omitempty" json:"role,omitempty"`
	// Permission fields after the change, keyed by field name
	Permissions map[string]*MangoPermission `bson:"permissions,omitempty" json:"permissions,omitempty"`
	Roles       []string                    `bson:"roles,omitempty" json:"roles,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
