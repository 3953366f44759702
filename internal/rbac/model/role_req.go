package model

import "strings"

type CreateRoleReq struct {
	Xid  string `json:"xid" validate:"omitempty,max=100"`
	Name string `json:"name" validate:"required,max=255"`
}

func (r *CreateRoleReq) Validate() error {
	r.Xid = strings.TrimSpace(r.Xid)
	r.Name = strings.TrimSpace(r.Name)
	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// UpdateRoleReq replaces a role's xid and name. An empty xid keeps the
// current one.
type UpdateRoleReq struct {
	Xid  string `json:"xid" validate:"omitempty,max=100"`
	Name string `json:"name" validate:"required,max=255"`
}

func (r *UpdateRoleReq) Validate() error {
	r.Xid = strings.TrimSpace(r.Xid)
	r.Name = strings.TrimSpace(r.Name)
	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
