package model

import "strings"

type SetUserRolesReq struct {
	Roles []string `json:"roles" validate:"max=100,dive,required,max=100"`
}

func (r *SetUserRolesReq) Validate() error {
	seen := make(map[string]struct{}, len(r.Roles))
	roles := make([]string, 0, len(r.Roles))
	for _, xid := range r.Roles {
		xid = strings.TrimSpace(xid)
		if _, dup := seen[xid]; dup {
			continue
		}
		seen[xid] = struct{}{}
		roles = append(roles, xid)
	}
	r.Roles = roles
	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
