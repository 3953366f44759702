package resources

import (
	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"
)

const maxLayoutWidgets = 200

// Dashboard is the payload of the dashboard resource type.
type Dashboard struct {
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Layout      []Widget `bson:"layout" json:"layout"`
}

type Widget struct {
	Kind string `bson:"kind" json:"kind"`
	X    int    `bson:"x" json:"x"`
	Y    int    `bson:"y" json:"y"`
	W    int    `bson:"w" json:"w"`
	H    int    `bson:"h" json:"h"`
}

// DashboardDefinition declares read and edit fields. Any authenticated user
// may create dashboards until the create permission is edited.
func DashboardDefinition() service.Definition[Dashboard] {
	return service.Definition[Dashboard]{
		TypeName:                model.ResourceTypeDashboard,
		XidPrefix:               "DB_",
		CreatePermissionType:    model.PermDashboardCreate,
		CreatePermissionDesc:    "Create dashboards",
		DefaultCreatePermission: model.RequireAnyRole(model.RoleUser),
		Fields: service.PermissionFields{
			Read: model.FieldReadPermission,
			Edit: model.FieldEditPermission,
		},
		Validate: validateDashboard,
	}
}

func validateDashboard(d Dashboard, result *model.ProcessResult) {
	if len(d.Description) > 1000 {
		result.AddContextualMessage("description", model.CodeTooLong, "description is too long")
	}
	if len(d.Layout) > maxLayoutWidgets {
		result.AddContextualMessage("layout", model.CodeTooLong, "too many widgets")
	}
	for _, w := range d.Layout {
		if w.Kind == "" || w.W <= 0 || w.H <= 0 || w.X < 0 || w.Y < 0 {
			result.AddContextualMessage("layout", model.CodeInvalidValue, "widget needs a kind and a positive size")
			return
		}
	}
}
