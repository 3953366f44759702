package permission

import "rolegate/internal/rbac/model"

// Evaluator answers permission queries. It holds no mutable state of its own
// and is safe for concurrent use.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(registry *Registry) *Evaluator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Evaluator{registry: registry}
}

func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// HasAnyRole reports whether holder has at least one of roles.
func (e *Evaluator) HasAnyRole(holder model.PermissionHolder, roles ...string) bool {
	if holder == nil {
		return false
	}
	if holder.IsSuperadmin() {
		return true
	}
	held := model.RoleSet(holder)
	for _, xid := range roles {
		if _, ok := held[xid]; ok {
			return true
		}
	}
	return false
}

// HasPermission reports whether holder satisfies p. Superadmin always does;
// a nil or empty expression is satisfied by nobody else.
func (e *Evaluator) HasPermission(holder model.PermissionHolder, p *model.MangoPermission) bool {
	if holder == nil {
		return false
	}
	if holder.IsSuperadmin() {
		return true
	}
	return satisfies(model.RoleSet(holder), p)
}

// HasCreatePermission evaluates the system permission registered under
// typeName. Unknown names are denied.
func (e *Evaluator) HasCreatePermission(holder model.PermissionHolder, typeName string) bool {
	if holder == nil {
		return false
	}
	if holder.IsSuperadmin() {
		return true
	}
	p, ok := e.registry.Lookup(typeName)
	if !ok {
		return false
	}
	return satisfies(model.RoleSet(holder), p)
}

func satisfies(held map[string]struct{}, p *model.MangoPermission) bool {
	if p.IsEmpty() {
		return false
	}
	for _, minterm := range p.Minterms() {
		if containsAll(held, minterm) {
			return true
		}
	}
	return false
}

func containsAll(held map[string]struct{}, minterm []string) bool {
	for _, xid := range minterm {
		if _, ok := held[xid]; !ok {
			return false
		}
	}
	return true
}
