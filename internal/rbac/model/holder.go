package model

// PermissionHolder is the identity a permission check runs against.
type PermissionHolder interface {
	HolderName() string
	// RoleXids returns the effective role set. It always contains
	// RoleUser for authenticated holders and RoleAnonymous otherwise.
	RoleXids() []string
	IsSuperadmin() bool
}

// User is an authenticated holder resolved from the role assignment store.
type User struct {
	ID    string
	Roles []string
}

func (u *User) HolderName() string {
	return u.ID
}

func (u *User) RoleXids() []string {
	out := make([]string, 0, len(u.Roles)+1)
	hasUser := false
	for _, r := range u.Roles {
		if r == RoleAnonymous {
			continue
		}
		if r == RoleUser {
			hasUser = true
		}
		out = append(out, r)
	}
	if !hasUser {
		out = append(out, RoleUser)
	}
	return out
}

func (u *User) IsSuperadmin() bool {
	for _, r := range u.Roles {
		if r == RoleSuperadmin {
			return true
		}
	}
	return false
}

type anonymousHolder struct{}

// AnonymousHolder is used for requests without a caller identity.
func AnonymousHolder() PermissionHolder {
	return anonymousHolder{}
}

func (anonymousHolder) HolderName() string { return RoleAnonymous }
func (anonymousHolder) RoleXids() []string { return []string{RoleAnonymous} }
func (anonymousHolder) IsSuperadmin() bool { return false }

// RoleSet turns a holder's effective roles into a lookup set.
func RoleSet(h PermissionHolder) map[string]struct{} {
	if h == nil {
		return map[string]struct{}{}
	}
	xids := h.RoleXids()
	set := make(map[string]struct{}, len(xids))
	for _, xid := range xids {
		set[xid] = struct{}{}
	}
	return set
}
