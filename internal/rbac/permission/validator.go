package permission

import (
	"strings"

	"rolegate/internal/rbac/model"
)

// Validator checks a proposed permission change against the old value and
// the roles of the holder making it.
type Validator struct {
	evaluator *Evaluator
}

func NewValidator(evaluator *Evaluator) *Validator {
	return &Validator{evaluator: evaluator}
}

// ValidatePermission adds a message to result for each rule newPerm breaks.
// oldPerm is nil on insert. readField enables the self-lockout rule.
//
// A non-superadmin holder must keep read access on readField, and may only
// add roles it already holds. Messages accumulate; nothing stops early.
func (v *Validator) ValidatePermission(result *model.ProcessResult, field string, holder model.PermissionHolder, oldPerm, newPerm *model.MangoPermission, readField bool) {
	if newPerm == nil {
		result.AddContextualMessage(field, model.CodeRequired, field+" is required")
		return
	}

	if holder != nil && holder.IsSuperadmin() {
		return
	}

	if readField && !v.evaluator.HasPermission(holder, newPerm) {
		result.AddContextualMessage(field, model.CodeMustRetainPermission,
			"cannot remove your own access to this resource")
	}

	if missing := unheldAdditions(holder, oldPerm, newPerm); len(missing) > 0 {
		result.AddContextualMessage(field, model.CodeRoleNotHeld,
			"cannot grant roles you do not hold: "+strings.Join(missing, ", "))
	}
}

// unheldAdditions returns roles present in newPerm but not oldPerm that
// holder lacks.
func unheldAdditions(holder model.PermissionHolder, oldPerm, newPerm *model.MangoPermission) []string {
	held := model.RoleSet(holder)
	var missing []string
	for _, xid := range newPerm.Roles() {
		if oldPerm.ContainsRole(xid) {
			continue
		}
		if _, ok := held[xid]; !ok {
			missing = append(missing, xid)
		}
	}
	return missing
}
