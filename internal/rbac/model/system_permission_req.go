package model

type UpdateSystemPermissionReq struct {
	Permission *MangoPermission `json:"permission"`
}

// Validate only checks shape. The non-null and escalation rules run in the service
// so that every violation is reported together.
func (r *UpdateSystemPermissionReq) Validate() error {
	return nil
}
