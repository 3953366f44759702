package resources

import (
	"math"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"
)

// DataPoint is the payload of the data_point resource type. Value is the
// live value written through Set.
type DataPoint struct {
	Unit    string  `bson:"unit,omitempty" json:"unit,omitempty"`
	Value   float64 `bson:"value" json:"value"`
	Enabled bool    `bson:"enabled" json:"enabled"`
}

// DataPointDefinition declares read, edit and set fields. Setting the value
// is an operational write and does not need edit.
func DataPointDefinition() service.Definition[DataPoint] {
	return service.Definition[DataPoint]{
		TypeName:             model.ResourceTypeDataPoint,
		XidPrefix:            "DP_",
		CreatePermissionType: model.PermDataPointCreate,
		CreatePermissionDesc: "Create data points",
		Fields: service.PermissionFields{
			Read: model.FieldReadPermission,
			Edit: model.FieldEditPermission,
			Set:  model.FieldSetPermission,
		},
		Validate: validateDataPoint,
	}
}

func validateDataPoint(dp DataPoint, result *model.ProcessResult) {
	if len(dp.Unit) > 32 {
		result.AddContextualMessage("unit", model.CodeTooLong, "unit is too long")
	}
	if math.IsNaN(dp.Value) || math.IsInf(dp.Value, 0) {
		result.AddContextualMessage("value", model.CodeInvalidValue, "value must be a finite number")
	}
}

// SetValue returns a mutation for ResourceService.Set that writes the live
// value. Disabled points reject writes.
func SetValue(v float64) func(*DataPoint) error {
	return func(dp *DataPoint) error {
		if !dp.Enabled {
			result := model.NewProcessResult()
			result.AddContextualMessage("enabled", model.CodeInvalidValue, "data point is disabled")
			return result.Err()
		}
		dp.Value = v
		return nil
	}
}
