package model

import "time"

// RoleAssignment holds the explicit roles granted to a user. The implicit
// user role is never stored.
type RoleAssignment struct {
	UserID    string    `bson:"_id" json:"user_id"`
	Roles     []string  `bson:"roles" json:"roles"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

func (a *RoleAssignment) Holder() *User {
	if a == nil {
		return nil
	}
	return &User{ID: a.UserID, Roles: append([]string(nil), a.Roles...)}
}
