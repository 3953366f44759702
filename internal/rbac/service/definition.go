package service

import "rolegate/internal/rbac/model"

// PermissionFields names the permission field keys a resource type declares.
// Read and Edit are required; an empty Set or Delete means the type has no
// such operation, and delete falls back to Edit.
type PermissionFields struct {
	Read   string
	Edit   string
	Set    string
	Delete string
}

// Declared returns the non-empty field keys in a stable order.
func (f PermissionFields) Declared() []string {
	out := make([]string, 0, 4)
	for _, k := range []string{f.Read, f.Edit, f.Set, f.Delete} {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (f PermissionFields) has(field string) bool {
	for _, k := range f.Declared() {
		if k == field {
			return true
		}
	}
	return false
}

func (f PermissionFields) deleteField() string {
	if f.Delete != "" {
		return f.Delete
	}
	return f.Edit
}

// Definition describes a resource type to the generic ResourceService.
type Definition[P any] struct {
	TypeName  string
	XidPrefix string

	// CreatePermissionType is the system permission checked on insert.
	CreatePermissionType    string
	CreatePermissionDesc    string
	DefaultCreatePermission *model.MangoPermission

	Fields PermissionFields

	// Validate adds type-specific messages for the payload.
	Validate func(payload P, result *model.ProcessResult)
}
